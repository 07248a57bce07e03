package websocket

import (
	"sync"
	"time"
)

// BroadcastMetric is a single dispatcher measurement
type BroadcastMetric struct {
	Kind        string        `json:"kind"`
	Duration    time.Duration `json:"duration"`
	Delivered   int           `json:"delivered"`
	Failed      int           `json:"failed"`
	MessageSize int           `json:"messageSize"`
	Timestamp   time.Time     `json:"timestamp"`
}

// BroadcastMetrics keeps a ring of recent broadcasts plus running totals
type BroadcastMetrics struct {
	// Metrics history (circular buffer)
	history     []BroadcastMetric
	historySize int
	historyPos  int

	// Aggregated metrics
	totalBroadcasts int
	totalDelivered  int
	totalFailed     int
	totalTime       time.Duration
	peakTime        time.Duration
	peakMessageSize int

	slowThreshold time.Duration
	onSlow        func(BroadcastMetric)

	mu sync.RWMutex
}

func NewBroadcastMetrics(historySize int) *BroadcastMetrics {
	if historySize <= 0 {
		historySize = 100
	}
	return &BroadcastMetrics{
		history:       make([]BroadcastMetric, historySize),
		historySize:   historySize,
		slowThreshold: 500 * time.Millisecond,
	}
}

// SetSlowBroadcastHook registers fn for broadcasts slower than threshold
func (m *BroadcastMetrics) SetSlowBroadcastHook(threshold time.Duration, fn func(BroadcastMetric)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowThreshold = threshold
	m.onSlow = fn
}

func (m *BroadcastMetrics) Record(metric BroadcastMetric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.history[m.historyPos] = metric
	m.historyPos = (m.historyPos + 1) % m.historySize

	m.totalBroadcasts++
	m.totalDelivered += metric.Delivered
	m.totalFailed += metric.Failed
	m.totalTime += metric.Duration
	if metric.Duration > m.peakTime {
		m.peakTime = metric.Duration
	}
	if metric.MessageSize > m.peakMessageSize {
		m.peakMessageSize = metric.MessageSize
	}
	onSlow, threshold := m.onSlow, m.slowThreshold
	m.mu.Unlock()

	if onSlow != nil && metric.Duration > threshold {
		onSlow(metric)
	}
}

// History returns recorded metrics, oldest first
func (m *BroadcastMetrics) History() []BroadcastMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([]BroadcastMetric, 0, m.historySize)
	for i := 0; i < m.historySize; i++ {
		pos := (m.historyPos + i) % m.historySize
		if !m.history[pos].Timestamp.IsZero() {
			history = append(history, m.history[pos])
		}
	}
	return history
}

// Aggregated returns running totals in the shape served by the stats endpoint
func (m *BroadcastMetrics) Aggregated() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avg := time.Duration(0)
	if m.totalBroadcasts > 0 {
		avg = m.totalTime / time.Duration(m.totalBroadcasts)
	}

	successRate := float64(100)
	if total := m.totalDelivered + m.totalFailed; total > 0 {
		successRate = float64(m.totalDelivered) / float64(total) * 100
	}

	return map[string]interface{}{
		"totalBroadcasts":     m.totalBroadcasts,
		"totalDelivered":      m.totalDelivered,
		"totalFailed":         m.totalFailed,
		"avgBroadcastTime":    avg.String(),
		"avgBroadcastTimeNs":  avg.Nanoseconds(),
		"peakBroadcastTime":   m.peakTime.String(),
		"peakBroadcastTimeNs": m.peakTime.Nanoseconds(),
		"peakMessageSize":     m.peakMessageSize,
		"successRate":         successRate,
	}
}
