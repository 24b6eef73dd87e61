// Package telemetry implements the log-shipper adapter described in
// spec.md §6: events tagged with one of a fixed set of "task" values
// are batched and POSTed as NDJSON to a Quickwit ingest endpoint, one
// index per task. It is a thin, best-effort pipeline - failures are
// dropped, never retried, never surfaced to the caller.
package telemetry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/eratosthenes/geoguess-server/internal/logging"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

// Tasks recognized by the ingest index mapping.
const (
	TaskHTTPRequest       = "http_request"
	TaskClientSentMessage = "client_sent_ws_message"
	TaskSocketsCount      = "sockets_count"
)

// BatchSize bounds how many events accumulate before a flush.
const BatchSize = 50

// FlushInterval bounds how long events wait before a flush even if
// BatchSize hasn't been reached.
const FlushInterval = 5 * time.Second

// SocketsCountInterval is how often the registry size is sampled.
const SocketsCountInterval = 10 * time.Second

// Shipper batches tagged events per task and forwards them to Quickwit.
type Shipper struct {
	quickwitURL string
	client      *http.Client

	mu      sync.Mutex
	batches map[string][]map[string]interface{}
}

// New builds a Shipper targeting quickwitURL. If quickwitURL is empty,
// Record and the background samplers become no-ops - telemetry is
// optional infrastructure, not a startup requirement.
func New(quickwitURL string) *Shipper {
	return &Shipper{
		quickwitURL: quickwitURL,
		client:      &http.Client{Timeout: 5 * time.Second},
		batches:     make(map[string][]map[string]interface{}),
	}
}

// Record appends a tagged event to its task's pending batch, flushing
// that task's batch immediately if it has reached BatchSize.
func (s *Shipper) Record(task string, fields map[string]interface{}) {
	if s == nil || s.quickwitURL == "" {
		return
	}
	event := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		event[k] = v
	}
	event["task"] = task

	s.mu.Lock()
	s.batches[task] = append(s.batches[task], event)
	full := len(s.batches[task]) >= BatchSize
	s.mu.Unlock()

	if full {
		s.flush(task)
	}
}

// Run starts the periodic flush loop and the sockets_count sampler.
// It blocks until ctx-equivalent stop is closed; callers typically run
// it in a goroutine for the lifetime of the process.
func (s *Shipper) Run(stop <-chan struct{}, registry *sockets.Registry) {
	if s == nil || s.quickwitURL == "" {
		return
	}
	flushTicker := time.NewTicker(FlushInterval)
	defer flushTicker.Stop()
	sampleTicker := time.NewTicker(SocketsCountInterval)
	defer sampleTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-flushTicker.C:
			s.flushAll()
		case <-sampleTicker.C:
			s.Record(TaskSocketsCount, map[string]interface{}{"count": registry.Count()})
		}
	}
}

func (s *Shipper) flushAll() {
	s.mu.Lock()
	tasks := make([]string, 0, len(s.batches))
	for task := range s.batches {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	for _, task := range tasks {
		s.flush(task)
	}
}

func (s *Shipper) flush(task string) {
	s.mu.Lock()
	events := s.batches[task]
	delete(s.batches, task)
	s.mu.Unlock()

	if len(events) == 0 {
		return
	}

	var body bytes.Buffer
	encoder := json.NewEncoder(&body)
	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			logging.Warn("telemetry: failed to encode event, dropping batch", map[string]interface{}{
				"task":  task,
				"error": err.Error(),
			})
			return
		}
	}

	url := s.quickwitURL + "/api/v1/" + task + "/ingest"
	resp, err := s.client.Post(url, "application/x-ndjson", &body)
	if err != nil {
		logging.Warn("telemetry: ingest request failed, dropping batch", map[string]interface{}{
			"task":  task,
			"error": err.Error(),
		})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logging.Warn("telemetry: ingest rejected batch", map[string]interface{}{
			"task":   task,
			"status": resp.StatusCode,
		})
	}
}
