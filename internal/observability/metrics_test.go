package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordRequest("/v1/scan", "POST", 200, time.Millisecond)
	m.RecordRequest("/v1/scan", "POST", 200, time.Millisecond)
	m.RecordError("/v1/scan", "POST", "EXPIRED")
	m.RecordScan("Accepted")
	m.RecordScan("Expired")
	m.RecordScan("")
	m.RecordIssue()
	m.RecordDroppedScan()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/v1/scan|POST|200"])
	assert.Equal(t, int64(1), snap.Errors["/v1/scan|POST|EXPIRED"])
	assert.Equal(t, map[string]int64{"Accepted": 1, "Expired": 1, "Unknown": 1}, snap.Scans)
	assert.Equal(t, int64(1), snap.Issued)
	assert.Equal(t, int64(1), snap.DroppedScans)

	snap.Scans["Accepted"] = 99
	assert.Equal(t, int64(1), m.Snapshot().Scans["Accepted"])
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordScan("Accepted")
	m.RecordIssue()
	m.RecordDroppedScan()
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
