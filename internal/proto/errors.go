package proto

// ErrorKind classifies why a request failed. Every transport or framing
// failure maps to exactly one kind so the aggregator can bucket it.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrConnectRefused
	ErrConnectReset
	ErrConnect
	ErrTimeout
	ErrConnectionClosed
	ErrMalformedResponse
	ErrMissingContentLength
	ErrTruncatedBody
	ErrNonSuccessStatus
)

var kindLabels = map[ErrorKind]string{
	ErrNone:                 "none",
	ErrConnectRefused:       "connect_refused",
	ErrConnectReset:         "connect_reset",
	ErrConnect:              "connect_error",
	ErrTimeout:              "timeout",
	ErrConnectionClosed:     "connection_closed",
	ErrMalformedResponse:    "malformed_response",
	ErrMissingContentLength: "missing_content_length",
	ErrTruncatedBody:        "truncated_body",
	ErrNonSuccessStatus:     "non_success_status",
}

func (k ErrorKind) String() string {
	if s, ok := kindLabels[k]; ok {
		return s
	}
	return "unknown"
}

// IsConnect reports whether the kind belongs to the connection
// establishment family (refused, reset, or other OS-level failure).
func (k ErrorKind) IsConnect() bool {
	return k == ErrConnectRefused || k == ErrConnectReset || k == ErrConnect
}
