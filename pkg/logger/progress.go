package logger

import (
	"fmt"
	"sync"
	"time"
)

// RowProgress tracks progress through the rows of a large extract,
// logging at fixed intervals so multi-thousand-row files give feedback
// without flooding the log.
type RowProgress struct {
	logger      Logger
	source      string
	rows        int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewRowProgress creates a tracker for the named input source.
func NewRowProgress(source string, logInterval time.Duration) *RowProgress {
	if logInterval <= 0 {
		logInterval = 5 * time.Second
	}

	now := time.Now()
	tracker := &RowProgress{
		logger:      GetGlobalLogger().WithComponent("progress"),
		source:      source,
		startTime:   now,
		lastLogTime: now,
		logInterval: logInterval,
	}

	tracker.logger.WithField("source", source).Debug("Starting row processing")
	return tracker
}

// Increment records one processed row.
func (p *RowProgress) Increment() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.rows++
	now := time.Now()
	if now.Sub(p.lastLogTime) >= p.logInterval {
		p.logger.WithFields(Fields{
			"source": p.source,
			"rows":   p.rows,
		}).Info("Processing rows")
		p.lastLogTime = now
	}
}

// Complete logs final row counts and throughput.
func (p *RowProgress) Complete() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	duration := time.Since(p.startTime)
	rate := 0.0
	if duration.Seconds() > 0 {
		rate = float64(p.rows) / duration.Seconds()
	}

	p.logger.WithFields(Fields{
		"source":   p.source,
		"rows":     p.rows,
		"duration": duration.String(),
		"rate":     fmt.Sprintf("%.2f rows/sec", rate),
	}).Info("Row processing completed")
}

// Rows returns the number of rows processed so far.
func (p *RowProgress) Rows() int64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.rows
}
