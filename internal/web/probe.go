package web

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ProbeConfig describes a load run against the /events stream.
type ProbeConfig struct {
	URL         string
	Connections int
	Duration    time.Duration
	// RampUp spreads connection starts across this window.
	RampUp         time.Duration
	ReportInterval time.Duration
}

// ProbeStats are the counters collected by Probe.
type ProbeStats struct {
	Connected   int64
	ConnectErrs int64
	StreamErrs  int64
	Events      int64
	ByType      map[string]int64
	Elapsed     time.Duration
}

// EventsPerSecond is the average event rate across the run.
func (s ProbeStats) EventsPerSecond() float64 {
	elapsed := s.Elapsed
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	return float64(s.Events) / elapsed.Seconds()
}

type probeCounters struct {
	connected   int64
	connectErrs int64
	streamErrs  int64
	events      int64

	mu     sync.Mutex
	byType map[string]int64
}

func (c *probeCounters) countType(name string) {
	c.mu.Lock()
	c.byType[name]++
	c.mu.Unlock()
}

// Probe opens cfg.Connections SSE streams and counts named events until
// cfg.Duration elapses or ctx is cancelled.
func Probe(ctx context.Context, cfg ProbeConfig, logger *zap.Logger) (ProbeStats, error) {
	if cfg.Connections <= 0 {
		return ProbeStats{}, errors.Errorf("invalid connections: %d", cfg.Connections)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RampUp == 0 && cfg.Connections > 100 {
		// 1 second per 500 connections
		cfg.RampUp = time.Duration(cfg.Connections/500) * time.Second
		if cfg.RampUp < time.Second {
			cfg.RampUp = time.Second
		}
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	transport := &http.Transport{
		MaxConnsPerHost:     cfg.Connections + 100,
		MaxIdleConns:        cfg.Connections + 100,
		MaxIdleConnsPerHost: cfg.Connections + 100,
		DisableCompression:  true,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport}

	logger.Info("starting event stream probe",
		zap.String("url", cfg.URL),
		zap.Int("conns", cfg.Connections),
		zap.Duration("duration", cfg.Duration),
		zap.Duration("ramp", cfg.RampUp))

	c := &probeCounters{byType: make(map[string]int64)}
	start := time.Now()

	reportDone := make(chan struct{})
	go func() {
		defer close(reportDone)
		ticker := time.NewTicker(cfg.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("probe status",
					zap.Int64("connected", atomic.LoadInt64(&c.connected)),
					zap.Int64("connect_errs", atomic.LoadInt64(&c.connectErrs)),
					zap.Int64("stream_errs", atomic.LoadInt64(&c.streamErrs)),
					zap.Int64("events", atomic.LoadInt64(&c.events)),
					zap.Duration("elapsed", time.Since(start).Truncate(time.Second)))
			}
		}
	}()

	var interval time.Duration
	if cfg.RampUp > 0 {
		interval = cfg.RampUp / time.Duration(cfg.Connections)
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Connections; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.stream(ctx, client, cfg.URL)
		}()
	}

	wg.Wait()
	cancel()
	<-reportDone

	c.mu.Lock()
	byType := make(map[string]int64, len(c.byType))
	for k, v := range c.byType {
		byType[k] = v
	}
	c.mu.Unlock()

	return ProbeStats{
		Connected:   atomic.LoadInt64(&c.connected),
		ConnectErrs: atomic.LoadInt64(&c.connectErrs),
		StreamErrs:  atomic.LoadInt64(&c.streamErrs),
		Events:      atomic.LoadInt64(&c.events),
		ByType:      byType,
		Elapsed:     time.Since(start),
	}, nil
}

func (c *probeCounters) stream(ctx context.Context, client *http.Client, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		atomic.AddInt64(&c.connectErrs, 1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&c.connectErrs, 1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		atomic.AddInt64(&c.connectErrs, 1)
		return
	}
	atomic.AddInt64(&c.connected, 1)

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// cancellation ends every stream, only count real failures
			if ctx.Err() == nil {
				atomic.AddInt64(&c.streamErrs, 1)
			}
			return
		}
		// heartbeats start with ':' and only "event:" lines name an event
		if name, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), "event: "); ok {
			atomic.AddInt64(&c.events, 1)
			c.countType(name)
		}
	}
}
