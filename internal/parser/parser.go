// Package parser implements the incremental HTTP/1.1 request parser: a
// resumable state machine over a bounded scratch buffer that consumes
// caller-supplied byte chunks and populates a Request, including its
// header table.
//
// Parse is designed to be called repeatedly by a worker's read loop: each
// call appends a chunk to the parser's internal scratch buffer and makes
// as much progress as the buffered bytes allow, returning Incomplete when
// it needs more input. An empty chunk signals end-of-stream and forces a
// terminal decision (Ok or Invalid), matching the read-loop contract in
// the worker pipeline that drives this parser.
package parser

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/oriane-systems/httpcore/internal/htable"
)

const (
	// MaxScratch is the size of the parser's inline scratch buffer,
	// shared across request-line, header, and body accumulation via
	// shift-based reuse. It doubles as the body size limit.
	MaxScratch = 2048

	MaxMethod      = 6
	MaxTarget      = 1024
	MaxHeaderName  = 64
	MaxHeaderValue = 512
	MaxHeaderCount = 32
	MaxBody        = 2048

	httpVersion = "HTTP/1.1"
)

var crlf = []byte("\r\n")

// ErrNilHeaders is returned when Parse is called with a Request whose
// Headers field was not initialized by the caller.
var ErrNilHeaders = errors.New("parser: request.Headers is nil")

// Request holds the fields populated by a successful (or partially
// populated, mid-flight) parse.
type Request struct {
	Method  Method
	Target  string
	Version string
	Headers *htable.Table
	Body    []byte
	BodyLen int
}

// Reset clears req for reuse across requests on the same connection slot.
// Headers is left as-is; callers typically construct a fresh htable.Table
// per request instead of reusing one (tombstones from a prior request
// would otherwise accumulate).
func (r *Request) Reset() {
	r.Method = MethodUnknown
	r.Target = ""
	r.Version = ""
	r.Body = nil
	r.BodyLen = 0
}

type state int

const (
	stateReqLine state = iota
	stateHeaders
	stateBody
)

// Options configures parser policy choices left open by the base grammar.
type Options struct {
	// StrictNoTrailing rejects a request that has no content-length but
	// is followed by additional buffered bytes (e.g. a second
	// request-line glued onto the same read) with StatusInvalid, instead
	// of silently ignoring them. Bytes past a declared content-length
	// are always discarded regardless of this setting; that truncation
	// is part of the wire contract.
	StrictNoTrailing bool
}

// Parser is per-worker, resumable state. It must not be shared across
// goroutines; create one per worker and reuse it across the connections
// that worker serially handles.
type Parser struct {
	opts Options

	scratch [MaxScratch]byte
	filled  int
	state   state

	headerCount int

	bodyLenKnown bool
	bodyLen      int
}

// New creates a Parser ready to parse a request-line from byte zero.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

// DefaultOptions is the policy internal/server wires workers with:
// trailing bytes after a complete request are rejected, consistent with
// one-parse-per-connection and no keep-alive multiplexing. Tests that want
// the looser historical behavior construct Options{} directly.
func DefaultOptions() Options {
	return Options{StrictNoTrailing: true}
}

// Reset returns the parser to its initial ReqLine state, discarding any
// buffered bytes. Called automatically by Parse on every terminal status;
// exposed for callers that want to abandon a parse early (e.g. on a read
// timeout they've decided not to continue).
func (p *Parser) Reset() {
	p.filled = 0
	p.state = stateReqLine
	p.headerCount = 0
	p.bodyLenKnown = false
	p.bodyLen = 0
}

// Parse feeds chunk to the parser and advances req as far as the buffered
// bytes allow, per the resumable contract: call repeatedly with
// successive chunks, looping on StatusIncomplete; pass an empty chunk to
// signal end-of-stream once the read side is done. req.Headers must be
// non-nil before the first call.
func (p *Parser) Parse(req *Request, chunk []byte) (Status, error) {
	if req.Headers == nil {
		p.Reset()
		return StatusErr, ErrNilHeaders
	}

	if p.filled+len(chunk) > MaxScratch {
		p.Reset()
		return StatusInvalid, nil
	}
	copy(p.scratch[p.filled:], chunk)
	p.filled += len(chunk)
	eos := len(chunk) == 0

	for {
		switch p.state {
		case stateReqLine:
			status, err := p.stepReqLine(req, eos)
			if status != StatusOK {
				return p.terminalOrIncomplete(status, err)
			}
			p.state = stateHeaders

		case stateHeaders:
			status, err, done := p.stepHeaders(req, eos)
			if !done {
				return p.terminalOrIncomplete(status, err)
			}
			p.state = stateBody

		case stateBody:
			status, err := p.stepBody(req, eos)
			return p.terminalOrIncomplete(status, err)
		}
	}
}

// terminalOrIncomplete resets parser state on any terminal status before
// returning it, matching the contract that terminal outcomes reset
// per-worker state for the next request.
func (p *Parser) terminalOrIncomplete(status Status, err error) (Status, error) {
	if status.Terminal() {
		p.Reset()
	}
	return status, err
}

// findLine locates the earliest CRLF in the buffered bytes and returns
// the line (excluding CRLF) and its total length including CRLF. ok is
// false if no CRLF is present yet.
func (p *Parser) findLine() (line []byte, lineLen int, ok bool) {
	buf := p.scratch[:p.filled]
	idx := bytes.Index(buf, crlf)
	if idx < 0 {
		return nil, 0, false
	}
	return buf[:idx], idx + 2, true
}

// consume shifts the remaining unconsumed bytes to the front of scratch
// after a line of length n (including its CRLF) has been processed.
func (p *Parser) consume(n int) {
	remaining := p.filled - n
	copy(p.scratch[:remaining], p.scratch[n:p.filled])
	p.filled = remaining
}

func (p *Parser) stepReqLine(req *Request, eos bool) (Status, error) {
	line, lineLen, ok := p.findLine()
	if !ok {
		if eos {
			return StatusInvalid, nil
		}
		return StatusIncomplete, nil
	}

	methodB, targetB, versionB, ok := splitRequestLine(line)
	if !ok {
		return StatusInvalid, nil
	}
	if len(methodB) < 1 || len(methodB) > MaxMethod {
		return StatusInvalid, nil
	}
	method := lookupMethod(string(methodB))
	if method == MethodUnknown {
		return StatusInvalid, nil
	}
	if len(targetB) < 1 || len(targetB) > MaxTarget {
		return StatusInvalid, nil
	}
	for _, b := range targetB {
		if b <= ' ' || b == 0x7f {
			return StatusInvalid, nil
		}
	}
	if string(versionB) != httpVersion {
		return StatusInvalid, nil
	}

	req.Method = method
	req.Target = string(targetB)
	req.Version = httpVersion

	p.consume(lineLen)
	return StatusOK, nil
}

// splitRequestLine splits a CRLF-stripped request-line into its three
// SP-delimited tokens. It reports ok=false only if the line has fewer than
// two SPs; extra SPs are not rejected here — single-SP-per-separator is
// enforced by the caller's subsequent length/content checks, which reject
// the empty or malformed tokens that extra spaces produce.
func splitRequestLine(line []byte) (method, target, version []byte, ok bool) {
	i1 := bytes.IndexByte(line, ' ')
	if i1 < 0 {
		return nil, nil, nil, false
	}
	rest := line[i1+1:]
	i2 := bytes.IndexByte(rest, ' ')
	if i2 < 0 {
		return nil, nil, nil, false
	}
	return line[:i1], rest[:i2], rest[i2+1:], true
}

// isTokenChar reports whether b is a valid RFC 9110 token character:
// letters, digits, or one of "!#$%&'*+-.^_`|~".
func isTokenChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

func (p *Parser) stepHeaders(req *Request, eos bool) (status Status, err error, done bool) {
	for {
		line, lineLen, ok := p.findLine()
		if !ok {
			if eos {
				return StatusInvalid, nil, false
			}
			return StatusIncomplete, nil, false
		}

		if len(line) == 0 {
			p.consume(lineLen)
			return StatusOK, nil, true
		}

		if p.headerCount >= MaxHeaderCount {
			return StatusInvalid, nil, false
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return StatusInvalid, nil, false
		}
		name := line[:colon]
		if len(name) > MaxHeaderName {
			return StatusInvalid, nil, false
		}
		for _, b := range name {
			if !isTokenChar(b) {
				return StatusInvalid, nil, false
			}
		}

		rest := line[colon+1:]
		i := 0
		for i < len(rest) && rest[i] == ' ' {
			i++
		}
		value := rest[i:]
		for len(value) > 0 {
			last := value[len(value)-1]
			if last != ' ' && last != '\r' && last != '\n' {
				break
			}
			value = value[:len(value)-1]
		}
		if len(value) == 0 {
			return StatusInvalid, nil, false
		}
		if len(value) > MaxHeaderValue {
			return StatusInvalid, nil, false
		}
		for _, b := range value {
			if b < 32 || b > 126 {
				return StatusInvalid, nil, false
			}
		}

		if err := req.Headers.Insert(string(name), string(value)); err != nil {
			return StatusErr, err, false
		}
		p.headerCount++
		p.consume(lineLen)
	}
}

func (p *Parser) stepBody(req *Request, eos bool) (Status, error) {
	if !p.bodyLenKnown {
		raw, present := req.Headers.Lookup("content-length")
		if !present {
			if p.opts.StrictNoTrailing {
				// Defer the decision to end-of-stream so the outcome
				// does not depend on how the trailing bytes were
				// chunked: any byte after the blank line is a reject.
				if p.filled > 0 {
					return StatusInvalid, nil
				}
				if !eos {
					return StatusIncomplete, nil
				}
			}
			req.Body = nil
			req.BodyLen = 0
			return StatusOK, nil
		}
		n, ok := parseContentLength(raw)
		if !ok {
			return StatusInvalid, nil
		}
		p.bodyLen = n
		p.bodyLenKnown = true
		req.BodyLen = n
	}

	if p.filled < p.bodyLen {
		if eos {
			return StatusInvalid, nil
		}
		return StatusIncomplete, nil
	}

	// Excess bytes beyond the declared length are discarded: truncation
	// is intentional, never an error.
	body := make([]byte, p.bodyLen)
	copy(body, p.scratch[:p.bodyLen])
	req.Body = body

	return StatusOK, nil
}

// parseContentLength parses raw as a base-10 non-negative integer no
// greater than MaxBody. Any parse failure — sign, junk characters, range
// overflow — means the request is invalid.
func parseContentLength(raw string) (int, bool) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n > MaxBody {
		return 0, false
	}
	return int(n), true
}
