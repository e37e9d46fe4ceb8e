package parser

import (
	"strings"
	"testing"

	"github.com/oriane-systems/httpcore/internal/htable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *Request {
	t.Helper()
	tbl, err := htable.New(16, nil)
	require.NoError(t, err)
	return &Request{Headers: tbl}
}

// parseAll feeds the whole wire input as a single chunk, followed by an
// EOS chunk if the parser still reports Incomplete, like a caller whose
// first read captured the entire request.
func parseAll(t *testing.T, p *Parser, req *Request, input string) (Status, error) {
	t.Helper()
	status, err := p.Parse(req, []byte(input))
	if status == StatusIncomplete {
		status, err = p.Parse(req, nil)
	}
	return status, err
}

func TestScenarioA_SimpleGet(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	assert.Equal(t, MethodGET, req.Method)
	assert.Equal(t, "/", req.Target)
	assert.Equal(t, "HTTP/1.1", req.Version)
	v, ok := req.Headers.Lookup("host")
	require.True(t, ok)
	assert.Equal(t, "localhost", v)
	assert.Empty(t, req.Body)
}

func TestScenarioB_BodyMatchesContentLength(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req,
		"POST /submit HTTP/1.1\r\nContent-Length: 13\r\nHost: h\r\n\r\nHello, World!")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, "Hello, World!", string(req.Body))
}

func TestScenarioC_BodyTruncatedToDeclaredLength(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req,
		"POST /submit HTTP/1.1\r\nContent-Length: 10\r\nHost: h\r\n\r\nHello, World! This is too long.")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, "Hello, Wor", string(req.Body))
}

func TestScenarioD_DuplicateHeadersJoined(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req,
		"GET / HTTP/1.1\r\nHost: example.com\r\nCookie: a\r\nCookie: b\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	v, ok := req.Headers.Lookup("cookie")
	require.True(t, ok)
	assert.Equal(t, "a, b", v)
}

func TestScenarioE_UnknownMethod(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "FOO / HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestScenarioF_WrongVersion(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "GET / HTTP/1.2\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestScenarioG_TabInsteadOfSpace(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "GET\t/ HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestScenarioH_LeadingSpaceBeforeColon(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "GET / HTTP/1.1\r\n  Host : v\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestScenarioI_NegativeContentLength(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "POST / HTTP/1.1\r\nContent-Length: -9\r\n\r\nx")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestScenarioJ_ByteByByteArrivalMatchesSingleChunk(t *testing.T) {
	input := "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"

	p := New(Options{})
	req := newRequest(t)

	var status Status
	var err error
	for i := 0; i < len(input)-1; i++ {
		status, err = p.Parse(req, []byte{input[i]})
		require.NoError(t, err)
		require.Equal(t, StatusIncomplete, status, "byte %d should still need more input", i)
	}
	// With no content-length the final LF of the blank line completes the
	// request, exactly as the single-chunk parse does.
	status, err = p.Parse(req, []byte{input[len(input)-1]})
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	assert.Equal(t, MethodGET, req.Method)
	assert.Equal(t, "/", req.Target)
	v, ok := req.Headers.Lookup("host")
	require.True(t, ok)
	assert.Equal(t, "localhost", v)
}

func TestIncomplete_RequestLineSplitAcrossChunks(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := p.Parse(req, []byte("GET / HTTP"))
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, status)

	status, err = p.Parse(req, []byte("/1.1\r\nHost: h\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
}

func TestIncomplete_HeadersSplitAcrossChunks(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := p.Parse(req, []byte("GET / HTTP/1.1\r\nHost: h\r\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, status)

	status, err = p.Parse(req, []byte("X-A: 1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
}

func TestIncomplete_BodySplitAcrossChunks(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := p.Parse(req, []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhel"))
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, status)

	status, err = p.Parse(req, []byte("lo"))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "hello", string(req.Body))
}

func TestInvalid_BodyTruncatedAtEOS(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := p.Parse(req, []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhe"))
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, status)

	status, err = p.Parse(req, nil) // EOS before body complete
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestHeaderValue_TrailingWhitespaceTrimmed(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "GET / HTTP/1.1\r\nHost: example.com \r\nX-A: v\r\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	v, ok := req.Headers.Lookup("host")
	require.True(t, ok)
	assert.Equal(t, "example.com", v)

	v, ok = req.Headers.Lookup("x-a")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestInvalid_TooManyHeaders(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	input := "GET / HTTP/1.1\r\n"
	for i := 0; i < 33; i++ {
		input += "X-H: v\r\n"
	}
	input += "\r\n"

	status, err := parseAll(t, p, req, input)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestInvalid_HeaderNameTooLong(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	longName := make([]byte, MaxHeaderName+1)
	for i := range longName {
		longName[i] = 'a'
	}
	input := "GET / HTTP/1.1\r\n" + string(longName) + ": v\r\n\r\n"

	status, err := parseAll(t, p, req, input)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestInvalid_HeaderValueTooLong(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	longValue := make([]byte, MaxHeaderValue+1)
	for i := range longValue {
		longValue[i] = 'v'
	}
	input := "GET / HTTP/1.1\r\nX-H: " + string(longValue) + "\r\n\r\n"

	status, err := parseAll(t, p, req, input)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestInvalid_TargetTooLong(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	target := "/" + strings.Repeat("a", MaxTarget)
	input := "GET " + target + " HTTP/1.1\r\n\r\n"

	status, err := parseAll(t, p, req, input)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestInvalid_ContentLengthTooLarge(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "POST / HTTP/1.1\r\nContent-Length: 999999\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestOK_NoContentLengthMeansEmptyBody(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "GET / HTTP/1.1\r\nHost: h\r\n\r\nstray-bytes-ignored")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Empty(t, req.Body)
}

func TestStrictNoTrailing_RejectsGluedRequests(t *testing.T) {
	p := New(Options{StrictNoTrailing: true})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "GET / HTTP/1.1\r\nHost: h\r\n\r\nGET / HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
}

func TestReset_AllowsReuseAfterTerminalStatus(t *testing.T) {
	p := New(Options{})
	req := newRequest(t)

	status, err := parseAll(t, p, req, "FOO / HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, status)

	tbl, err := htable.New(16, nil)
	require.NoError(t, err)
	req2 := &Request{Headers: tbl}
	status, err = parseAll(t, p, req2, "GET / HTTP/1.1\r\nHost: h\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
}

// The final status for a given byte stream must not depend on how it is
// segmented into chunks.
func TestProperty_ChunkingEquivalence(t *testing.T) {
	inputs := []string{
		"GET / HTTP/1.1\r\nHost: localhost\r\n\r\n",
		"POST /submit HTTP/1.1\r\nContent-Length: 13\r\nHost: h\r\n\r\nHello, World!",
		"FOO / HTTP/1.1\r\n\r\n",
		"GET / HTTP/1.1\r\nHost: example.com\r\nCookie: a\r\nCookie: b\r\n\r\n",
	}

	for _, input := range inputs {
		whole := New(Options{})
		wholeReq := newRequest(t)
		wantStatus, _ := parseAll(t, whole, wholeReq, input)

		perByte := New(Options{})
		perByteReq := newRequest(t)
		var gotStatus Status
		for i := 0; i < len(input); i++ {
			gotStatus, _ = perByte.Parse(perByteReq, []byte{input[i]})
			if gotStatus != StatusIncomplete {
				break
			}
		}
		if gotStatus == StatusIncomplete {
			gotStatus, _ = perByte.Parse(perByteReq, nil)
		}

		assert.Equal(t, wantStatus, gotStatus, "mismatch for input %q", input)
	}
}

// Every parse that reaches Ok must leave the request with a known method,
// a non-empty target, the fixed version literal, and a body no longer
// than its declared length.
func TestProperty_SuccessfulRequestInvariants(t *testing.T) {
	inputs := []string{
		"GET / HTTP/1.1\r\nHost: localhost\r\n\r\n",
		"POST /submit HTTP/1.1\r\nContent-Length: 13\r\nHost: h\r\n\r\nHello, World!",
	}

	for _, input := range inputs {
		p := New(Options{})
		req := newRequest(t)
		status, err := parseAll(t, p, req, input)
		require.NoError(t, err)
		require.Equal(t, StatusOK, status)

		assert.NotEqual(t, MethodUnknown, req.Method)
		assert.NotEmpty(t, req.Target)
		assert.Equal(t, "HTTP/1.1", req.Version)
		assert.LessOrEqual(t, len(req.Body), req.BodyLen)
	}
}

// TestRequestLine_SingleByteMutation is the generator-driven replacement for
// test_request_line.c's and test_request_headers.c's exhaustive single-byte
// mutation tables: flip one byte of a valid request and confirm the parser
// never hangs or panics, terminating in either Ok (the mutation happened to
// land somewhere inert, e.g. inside the body) or Invalid.
func TestRequestLine_SingleByteMutation(t *testing.T) {
	valid := "GET /index.html HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nhello"

	for i := range len(valid) {
		mutated := []byte(valid)
		mutated[i] ^= 0xFF

		assert.NotPanics(t, func() {
			p := New(Options{})
			req := newRequest(t)
			status, _ := p.Parse(req, mutated)
			if status == StatusIncomplete {
				status, _ = p.Parse(req, nil)
			}
			assert.True(t, status == StatusOK || status == StatusInvalid,
				"byte %d mutation left parser in non-terminal state %v", i, status)
		})
	}
}

func TestRobustness_FuzzedBytesNeverPanicOrHang(t *testing.T) {
	streams := [][]byte{
		{0x00, 0x01, 0x02},
		[]byte("\r\n\r\n\r\n"),
		[]byte("GET"),
		[]byte("GET / HTTP/1.1\r\n\x00\x01: v\r\n\r\n"),
		[]byte(strings.Repeat("A", 5000)),
	}

	for _, s := range streams {
		assert.NotPanics(t, func() {
			p := New(Options{})
			req := newRequest(t)
			status, _ := p.Parse(req, s)
			if status == StatusIncomplete {
				status, _ = p.Parse(req, nil)
			}
			assert.NotEqual(t, StatusIncomplete, status)
		})
	}
}
