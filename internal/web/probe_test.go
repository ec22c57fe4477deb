package web

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/mtftrader/internal/events"
)

func TestProbe_CountsEvents(t *testing.T) {
	srv, b := newTestServer(nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	const conns = 3
	done := make(chan struct{})
	go func() {
		defer close(done)
		// publish once every probe connection is subscribed
		for b.Subscribers() < conns {
			time.Sleep(5 * time.Millisecond)
		}
		b.Trade(events.TradeEvent{Pair: "BTC_USDT", Kind: events.TradeOpened})
		b.Error(events.ErrorEvent{Pair: "BTC_USDT", Kind: "data", Message: "timeout"})
	}()

	stats, err := Probe(context.Background(), ProbeConfig{
		URL:            ts.URL + "/events",
		Connections:    conns,
		Duration:       time.Second,
		ReportInterval: 100 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	<-done

	assert.Equal(t, int64(conns), stats.Connected)
	assert.Zero(t, stats.ConnectErrs)
	assert.Zero(t, stats.StreamErrs)
	assert.Equal(t, int64(2*conns), stats.Events)
	assert.Equal(t, int64(conns), stats.ByType["trade"])
	assert.Equal(t, int64(conns), stats.ByType["error"])
	assert.Greater(t, stats.EventsPerSecond(), 0.0)
}

func TestProbe_ConnectErrors(t *testing.T) {
	srv, _ := newTestServer(nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	stats, err := Probe(context.Background(), ProbeConfig{
		URL:         ts.URL + "/missing",
		Connections: 2,
		Duration:    200 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ConnectErrs)
	assert.Zero(t, stats.Connected)
}

func TestProbe_InvalidConnections(t *testing.T) {
	_, err := Probe(context.Background(), ProbeConfig{URL: "http://localhost", Connections: 0}, nil)
	assert.Error(t, err)
}
