// Package admin implements the operator-facing HTTP surface (/healthz,
// /metrics, /stats) on a separate listener from the raw HTTP/1.1 protocol
// port this project parses. The protocol path itself never generates
// responses or routes anything; this surface exists purely for operators
// and sits entirely outside it.
package admin

import (
	"context"
	"io"
	"net/http"
)

// Request is the transport-agnostic request view handlers see, regardless
// of whether the underlying transport is net/http or fasthttp.
type Request struct {
	Ctx        context.Context
	Method     string
	Path       string
	Header     http.Header
	Body       io.ReadCloser
	RemoteAddr string
	Raw        interface{}
}

// ResponseWriter is the subset of http.ResponseWriter semantics both
// transport adapters implement.
type ResponseWriter interface {
	Header() http.Header
	Write([]byte) (int, error)
	WriteHeader(status int)
}

// HandlerFunc is the handler signature shared by both transport adapters.
type HandlerFunc func(w ResponseWriter, r *Request)
