package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriane-systems/httpcore/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.Workers = 2
	cfg.Server.AcceptRPS = 1000
	cfg.Server.AcceptBurst = 100
	cfg.Server.ReadTimeout = config.Duration(500 * time.Millisecond)
	cfg.Queue.Capacity = 8
	cfg.Table.InitialCapacity = 4
	return cfg
}

func TestServer_AcceptsAndParsesSimpleRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := New(ctx, testConfig(t))
	require.NoError(t, err)

	runDone := make(chan struct{})
	go func() {
		_ = srv.Run(ctx)
		close(runDone)
	}()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	require.NoError(t, err)

	// The server closes the connection once the request terminates.
	buf := make([]byte, 16)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _ = conn.Read(buf) // expect EOF or 0 bytes; core does no response generation
	conn.Close()

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestServer_ShutsDownOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	srv, err := New(ctx, testConfig(t))
	require.NoError(t, err)

	runDone := make(chan struct{})
	go func() {
		_ = srv.Run(ctx)
		close(runDone)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestHashFuncFor(t *testing.T) {
	assert.Nil(t, hashFuncFor("fnv1a"))
	assert.NotNil(t, hashFuncFor("xxhash"))
}
