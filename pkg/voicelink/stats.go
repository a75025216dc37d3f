package voicelink

import (
	"sync"
	"time"
)

// StreamStats accumulates capture-side streaming statistics.
type StreamStats struct {
	mu            sync.Mutex
	startedAt     time.Time
	totalBlocks   int64
	totalSamples  int64
	totalBytes    int64
	droppedFrames int64
	peakLevel     float64
	levelSum      float64
}

// StreamStatsSnapshot is an immutable copy for callers.
type StreamStatsSnapshot struct {
	Duration      time.Duration
	TotalBlocks   int64
	TotalSamples  int64
	TotalBytes    int64
	DroppedFrames int64
	PeakLevel     float64
	AverageLevel  float64
}

func NewStreamStats() *StreamStats {
	return &StreamStats{startedAt: time.Now()}
}

func (s *StreamStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = time.Now()
	s.totalBlocks = 0
	s.totalSamples = 0
	s.totalBytes = 0
	s.droppedFrames = 0
	s.peakLevel = 0
	s.levelSum = 0
}

// AddBlock records one captured block and its metered level.
func (s *StreamStats) AddBlock(samples int, level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalBlocks++
	s.totalSamples += int64(samples)
	s.totalBytes += int64(samples) * 2
	s.levelSum += level
	if level > s.peakLevel {
		s.peakLevel = level
	}
}

// AddDropped records frames dropped under backpressure.
func (s *StreamStats) AddDropped(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedFrames += n
}

func (s *StreamStats) Snapshot() StreamStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StreamStatsSnapshot{
		Duration:      time.Since(s.startedAt),
		TotalBlocks:   s.totalBlocks,
		TotalSamples:  s.totalSamples,
		TotalBytes:    s.totalBytes,
		DroppedFrames: s.droppedFrames,
		PeakLevel:     s.peakLevel,
	}
	if s.totalBlocks > 0 {
		snap.AverageLevel = s.levelSum / float64(s.totalBlocks)
	}
	return snap
}
