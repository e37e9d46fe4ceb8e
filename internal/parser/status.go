package parser

// Status is the terminal/non-terminal outcome of a single Parse call.
type Status int

const (
	// StatusIncomplete means the parser needs more bytes; the caller should
	// read more from the connection and call Parse again with the same
	// *Request. Never returned when chunk is empty (EOS).
	StatusIncomplete Status = iota
	// StatusOK is terminal success: req is fully populated.
	StatusOK
	// StatusInvalid is terminal: the input violates the grammar, a size
	// limit, or a charset rule.
	StatusInvalid
	// StatusErr is terminal: an internal failure unrelated to the input
	// (e.g. the header table failed to allocate on insert).
	StatusErr
)

func (s Status) String() string {
	switch s {
	case StatusIncomplete:
		return "Incomplete"
	case StatusOK:
		return "Ok"
	case StatusInvalid:
		return "Invalid"
	case StatusErr:
		return "Err"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s ends the current parse. Parse resets the
// parser before returning a terminal status, so the next call starts a
// new request.
func (s Status) Terminal() bool {
	return s != StatusIncomplete
}
