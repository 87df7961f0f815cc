package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for requests and token activity.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	requestLatency map[string]time.Duration
	errorCount     map[string]int64
	tokensIssued   map[string]int64
	tokensRejected map[string]int64
	keySetFetches  map[string]int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests       map[string]int64 `json:"requests"`
	AvgLatencyMs   map[string]int64 `json:"avg_latency_ms"`
	Errors         map[string]int64 `json:"errors"`
	TokensIssued   map[string]int64 `json:"tokens_issued"`
	TokensRejected map[string]int64 `json:"tokens_rejected"`
	KeySetFetches  map[string]int64 `json:"key_set_fetches"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		requestLatency: make(map[string]time.Duration),
		errorCount:     make(map[string]int64),
		tokensIssued:   make(map[string]int64),
		tokensRejected: make(map[string]int64),
		keySetFetches:  make(map[string]int64),
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
	m.requestLatency[key] += duration
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

// RecordTokenIssued counts minted tokens by kind.
func (m *Metrics) RecordTokenIssued(kind string) {
	if m == nil {
		return
	}
	m.inc(m.tokensIssued, kind)
}

// RecordTokenRejected counts failed verifications by kind.
func (m *Metrics) RecordTokenRejected(kind string) {
	if m == nil {
		return
	}
	m.inc(m.tokensRejected, kind)
}

// RecordKeySetFetch counts JWKS fetches by outcome.
func (m *Metrics) RecordKeySetFetch(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.inc(m.keySetFetches, outcome)
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	latency := make(map[string]int64, len(m.requestLatency))
	for key, total := range m.requestLatency {
		if n := m.requestCount[key]; n > 0 {
			latency[key] = (total / time.Duration(n)).Milliseconds()
		}
	}
	return Snapshot{
		Requests:       copyCounts(m.requestCount),
		AvgLatencyMs:   latency,
		Errors:         copyCounts(m.errorCount),
		TokensIssued:   copyCounts(m.tokensIssued),
		TokensRejected: copyCounts(m.tokensRejected),
		KeySetFetches:  copyCounts(m.keySetFetches),
	}
}

func (m *Metrics) inc(counter map[string]int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counter[key]++
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
