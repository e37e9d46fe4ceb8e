package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	queueLen, queueCap, active int
}

func (f fakeProvider) QueueLen() int          { return f.queueLen }
func (f fakeProvider) QueueCap() int          { return f.queueCap }
func (f fakeProvider) ActiveConnections() int { return f.active }

func testAdmin() *Admin {
	return New(":0", fakeProvider{queueLen: 3, queueCap: 16, active: 2}, prometheus.NewRegistry())
}

func TestHandleHealthz_ReturnsOK(t *testing.T) {
	srv := httptest.NewServer(testAdmin().NetHTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleStats_ReturnsProviderSnapshot(t *testing.T) {
	srv := httptest.NewServer(testAdmin().NetHTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 3, stats.QueueLen)
	assert.Equal(t, 16, stats.QueueCap)
	assert.Equal(t, 2, stats.ActiveConn)
}

func TestHandleMetrics_ServesRegistry(t *testing.T) {
	srv := httptest.NewServer(testAdmin().NetHTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_UnknownPathReturns404(t *testing.T) {
	srv := httptest.NewServer(testAdmin().NetHTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
