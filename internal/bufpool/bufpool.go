// Package bufpool pools the transport-side socket-read buffers workers use
// to pull bytes off a connection before handing them to the parser. This
// is strictly separate from the parser's own inline scratch array, which
// holds no heap allocations of its own by design.
package bufpool

import "github.com/valyala/bytebufferpool"

// maxPooled is the largest buffer size returned to the pool; oversized
// buffers are dropped instead so one abnormally large read doesn't bloat
// the pool's steady-state footprint.
const maxPooled = 64 * 1024

// Get returns a pooled buffer, resetting it for reuse.
func Get() *bytebufferpool.ByteBuffer {
	b := bytebufferpool.Get()
	b.Reset()
	return b
}

// Put returns b to the pool, unless it has grown past maxPooled, in which
// case it is dropped so the GC can reclaim it.
func Put(b *bytebufferpool.ByteBuffer) {
	if b == nil {
		return
	}
	if cap(b.B) > maxPooled {
		return
	}
	bytebufferpool.Put(b)
}
