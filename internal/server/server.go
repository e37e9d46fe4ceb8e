// Package server implements the worker pipeline (WP): a TCP accept loop
// that is the sole producer onto a bounded blocking queue, and a fixed
// pool of worker goroutines that are the sole consumers, each driving the
// incremental HTTP/1.1 parser against its own connection's byte stream.
//
// The accept loop is the queue's only producer and the workers its only
// consumers; each worker owns its parser state and connection for the
// duration of one parse, so nothing here needs locking beyond the queue
// itself.
package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/oriane-systems/httpcore/internal/bufpool"
	"github.com/oriane-systems/httpcore/internal/config"
	"github.com/oriane-systems/httpcore/internal/htable"
	"github.com/oriane-systems/httpcore/internal/metrics"
	"github.com/oriane-systems/httpcore/internal/obslog"
	"github.com/oriane-systems/httpcore/internal/parser"
	"github.com/oriane-systems/httpcore/internal/queue"
)

// Server owns the listener, the bounded queue, and the worker pool.
type Server struct {
	cfg      config.ServerConfig
	tableCfg config.TableConfig

	listener net.Listener
	queue    *queue.Queue[*Conn]
	limiter  *rate.Limiter

	activeConns atomic.Int64

	done chan struct{}
}

// QueueLen, QueueCap, and ActiveConnections implement
// internal/admin.StatsProvider structurally (admin does not import this
// package, avoiding an import cycle; Go interface satisfaction only
// requires matching method signatures).
func (s *Server) QueueLen() int          { return s.queue.Len() }
func (s *Server) QueueCap() int          { return s.queue.Cap() }
func (s *Server) ActiveConnections() int { return int(s.activeConns.Load()) }

// New constructs a Server bound to cfg.Server.Listen. It does not start
// accepting connections; call Run for that.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	ln, err := listen(ctx, cfg.Server.Listen)
	if err != nil {
		return nil, err
	}

	q, err := queue.New[*Conn](cfg.Queue.Capacity)
	if err != nil {
		ln.Close()
		return nil, err
	}

	return &Server{
		cfg:      cfg.Server,
		tableCfg: cfg.Table,
		listener: ln,
		queue:    q,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Server.AcceptRPS), cfg.Server.AcceptBurst),
		done:     make(chan struct{}),
	}, nil
}

// Addr returns the listener's bound address, useful when cfg.Server.Listen
// used port 0.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Run starts the worker pool and the accept loop and blocks until ctx is
// canceled or the accept loop hits a fatal (non-shutdown) error.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerDone := make(chan struct{}, s.cfg.Workers)
	for i := 0; i < s.cfg.Workers; i++ {
		go func(id int) {
			s.runWorker(id)
			workerDone <- struct{}{}
		}(i)
	}

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-acceptErr:
		runErr = err
		cancel()
	}

	s.listener.Close()
	s.queue.Close(func(c *Conn) {
		c.Close()
	})

	for i := 0; i < s.cfg.Workers; i++ {
		<-workerDone
	}
	close(s.done)

	return runErr
}

// acceptLoop is the sole producer onto the bounded queue. It retries
// transient accept errors after a short pause and exits cleanly once the
// listener is closed by Run's shutdown path.
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil // context canceled while waiting for an admission token
		}

		nc, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Temporary() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}

		setNoDelay(nc)
		metrics.ConnectionsAccepted.Inc()
		c := newConn(nc)

		s.queue.Send(c)
		metrics.QueueSendTotal.Inc()
		metrics.QueueDepth.Set(float64(s.queue.Len()))
	}
}

// runWorker is the queue's sole consumer loop for one worker slot. The
// parser instance is created once per worker and reused across the
// connections that worker serially handles; parser state is per-worker,
// never process-global.
func (s *Server) runWorker(id int) {
	p := parser.New(parser.DefaultOptions())

	for {
		c, ok := s.queue.Recv()
		if !ok {
			return
		}
		metrics.QueueRecvTotal.Inc()
		metrics.QueueDepth.Set(float64(s.queue.Len()))
		metrics.ConnectionsActive.Inc()
		s.activeConns.Add(1)

		s.serve(p, c)

		metrics.ConnectionsActive.Dec()
		s.activeConns.Add(-1)
	}
}

// serve runs the read loop against a single connection: read up to N
// bytes, call Parse, loop on Incomplete, and on read timeout/EOF feed an
// empty chunk so Parse reaches a terminal decision.
func (s *Server) serve(p *parser.Parser, c *Conn) {
	defer c.Close()

	start := time.Now()

	tbl, err := htable.New(uint32(s.tableCfg.InitialCapacity), hashFuncFor(s.tableCfg.Hash))
	if err != nil {
		obslog.Log.Error("header table init failed", "conn_id", c.ID, "error", err)
		return
	}
	req := &parser.Request{Headers: tbl}

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	buf.B = buf.B[:cap(buf.B)]
	if len(buf.B) == 0 {
		buf.B = make([]byte, s.cfg.ReadBufferSize.Int())
	}

	var status parser.Status
	for {
		if s.cfg.ReadTimeout.Duration() > 0 {
			_ = c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout.Duration()))
		}

		n, readErr := c.netConn.Read(buf.B)
		if n > 0 {
			status, err = p.Parse(req, buf.B[:n])
			if status.Terminal() {
				break
			}
		}
		if readErr != nil {
			// Read timeout or EOF: drive the parser to a terminal
			// decision with an end-of-stream chunk.
			status, err = p.Parse(req, nil)
			break
		}
	}

	outcome := status.String()
	metrics.ParserOutcomeTotal.WithLabelValues(strings.ToLower(outcome)).Inc()
	if tbl.Capacity() != uint32(s.tableCfg.InitialCapacity) {
		metrics.TableResizeTotal.Inc()
	}
	metrics.TableLiveEntries.Set(float64(tbl.Size()))
	metrics.ConnectionsClosed.Inc()

	obslog.LogRequest(c.ID, req.Method.String(), req.Target, req.Version, outcome,
		time.Since(start).Milliseconds(), headersSnapshot(tbl))

	if err != nil {
		obslog.Log.Error("parse error", "conn_id", c.ID, "error", err)
	}
}

func headersSnapshot(tbl *htable.Table) map[string]string {
	out := make(map[string]string)
	tbl.Range(func(key, value string) {
		out[key] = value
	})
	return out
}

func hashFuncFor(name string) htable.HashFunc {
	if name == "xxhash" {
		return htable.HashXXHash64
	}
	return nil // nil selects htable's FNV-1a default
}
