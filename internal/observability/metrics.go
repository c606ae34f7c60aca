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
	scanCount    map[string]int64
	issueCount   int64
	droppedScans int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests     map[string]int64 `json:"requests"`
	Errors       map[string]int64 `json:"errors"`
	Scans        map[string]int64 `json:"scans"`
	Issued       int64            `json:"issued"`
	DroppedScans int64            `json:"dropped_scans"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		scanCount:    make(map[string]int64),
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

// RecordScan counts a verification outcome by reason ("Accepted" on success).
func (m *Metrics) RecordScan(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "Unknown"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCount[outcome]++
}

// RecordIssue counts an issued envelope.
func (m *Metrics) RecordIssue() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issueCount++
}

// RecordDroppedScan counts a scan outcome the audit queue could not accept.
func (m *Metrics) RecordDroppedScan() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedScans++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:     copyCounts(m.requestCount),
		Errors:       copyCounts(m.errorCount),
		Scans:        copyCounts(m.scanCount),
		Issued:       m.issueCount,
		DroppedScans: m.droppedScans,
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
