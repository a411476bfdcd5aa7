package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64

	ingestRuns        int64
	ingestRunErrors   int64
	ticketsIngested   int64
	messagesDiscarded int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordIngestRun accounts one ingestion run. created counts tickets persisted,
// discarded counts messages marked read without a surviving ticket.
func (m *Metrics) RecordIngestRun(created, discarded int, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestRuns++
	if failed {
		m.ingestRunErrors++
	}
	m.ticketsIngested += int64(created)
	m.messagesDiscarded += int64(discarded)
}

// IngestStats returns a snapshot of ingestion counters.
func (m *Metrics) IngestStats() (runs, runErrors, created, discarded int64) {
	if m == nil {
		return 0, 0, 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingestRuns, m.ingestRunErrors, m.ticketsIngested, m.messagesDiscarded
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
