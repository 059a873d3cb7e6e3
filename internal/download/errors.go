package download

import "fmt"

// Kind classifies a download failure.
type Kind int

const (
	// KindGeneral covers invalid requests and local I/O failures.
	KindGeneral Kind = iota
	// KindRepeat means the URL is already being downloaded.
	KindRepeat
	// KindHTTP means the transfer itself failed.
	KindHTTP
	// KindHTTPLogic means the server answered with a non-2xx status.
	KindHTTPLogic
	// KindUnzip means the payload could not be turned into a lyric file.
	KindUnzip
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGeneral:
		return "general"
	case KindRepeat:
		return "repeat"
	case KindHTTP:
		return "http"
	case KindHTTPLogic:
		return "http logic"
	case KindUnzip:
		return "unzip"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the only error type passed to Callbacks.Completed.
type Error struct {
	Kind    Kind
	Code    int // HTTP status for KindHTTPLogic, -1 for transport failures
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("download %s error", e.Kind)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
