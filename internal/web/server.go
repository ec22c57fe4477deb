package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/mtftrader/internal/events"
	"github.com/vadiminshakov/mtftrader/internal/storage/journal"
)

const heartbeatInterval = 30 * time.Second

type journalReader interface {
	After(index uint64) ([]journal.Entry, error)
}

type subscriber interface {
	Subscribe() chan events.Envelope
	Unsubscribe(ch chan events.Envelope)
}

// Server exposes the status page, Prometheus metrics, the journal and an SSE event stream.
type Server struct {
	Addr    string
	Status  func() any
	Metrics http.Handler
	Events  subscriber
	Journal journalReader
	Logger  *zap.Logger

	heartbeat time.Duration
}

// NewServer creates a new web server instance. Journal may be nil.
func NewServer(addr string, status func() any, metrics http.Handler, ev subscriber, j journalReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:      addr,
		Status:    status,
		Metrics:   metrics,
		Events:    ev,
		Journal:   j,
		Logger:    logger,
		heartbeat: heartbeatInterval,
	}
}

// Handler returns the routes served by Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/journal", s.handleJournal)
	mux.HandleFunc("/events", s.handleEvents)
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.Logger.Info("HTTP server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.Status == nil {
		http.Error(w, "status not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.Status())
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal not available", http.StatusServiceUnavailable)
		return
	}
	after, err := afterParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := s.Journal.After(after)
	if err != nil {
		s.Logger.Error("journal read failed", zap.Error(err))
		http.Error(w, "failed to read journal", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, entries)
}

// handleEvents replays journal entries after ?after= when a journal is
// configured, then streams live events until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		http.Error(w, "event stream not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	after, err := afterParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// subscribe before the replay so nothing falls between the two
	ch := s.Events.Subscribe()
	defer s.Events.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if s.Journal != nil && r.URL.Query().Has("after") {
		entries, err := s.Journal.After(after)
		if err != nil {
			s.Logger.Warn("event stream journal replay failed", zap.Error(err))
		}
		for _, e := range entries {
			writeEvent(w, "journal", e)
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case env, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, env.Type, env)
			flusher.Flush()
		}
	}
}

func afterParam(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("after")
	if raw == "" {
		return 0, nil
	}
	after, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid after=%q", raw)
	}
	return after, nil
}

func writeEvent(w http.ResponseWriter, name string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", name)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>mtftrader</title>
<style>
body { font-family: 'JetBrains Mono', monospace; margin: 2rem; color: #111; background: #fafafa; }
h1 { font-size: 1.2rem; }
pre { background: #fff; border: 1px solid #ddd; padding: 1rem; }
#events li { margin: .2rem 0; }
.error { color: #b00020; }
.rejected { color: #a15c00; }
</style>
</head>
<body>
<h1>mtftrader</h1>
<pre id="status">loading...</pre>
<ul id="events"></ul>
<script>
async function refresh() {
  try {
    const res = await fetch('/status');
    document.getElementById('status').textContent = JSON.stringify(await res.json(), null, 2);
  } catch (e) {}
}
refresh();
setInterval(refresh, 5000);

const list = document.getElementById('events');
function add(text, cls) {
  const li = document.createElement('li');
  li.textContent = text;
  if (cls) li.className = cls;
  list.prepend(li);
}
const es = new EventSource('/events?after=0');
es.addEventListener('trade', (m) => {
  const t = JSON.parse(m.data).trade;
  add(t.ts + ' ' + t.kind + ' ' + t.direction + ' ' + t.quantity + ' @ ' + t.price + (t.reason ? ' (' + t.reason + ')' : ''), t.kind);
  refresh();
});
es.addEventListener('error', (m) => {
  if (!m.data) return;
  const e = JSON.parse(m.data).error;
  add(e.ts + ' ' + e.kind + ': ' + e.message, 'error');
});
es.addEventListener('journal', (m) => {
  const j = JSON.parse(m.data);
  add(j.at + ' [journal] ' + j.type + ' ' + JSON.stringify(j.payload), j.type === 'error' ? 'error' : '');
});
</script>
</body>
</html>
`
