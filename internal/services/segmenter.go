package services

import (
	"time"

	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/types"
)

// SegmenterConfig holds the thresholds that control how the sample
// stream is collapsed into events.
type SegmenterConfig struct {
	// SampleInterval is the expected cadence of incoming samples. Used
	// to extend an event past its final observed sample when a gap
	// forces closure, so the last instant is not undercounted.
	SampleInterval time.Duration

	// MaxGap is the largest tolerated distance between consecutive
	// samples. A larger gap means the machine was suspended or the
	// collector was not running; the open event is never extended
	// across it.
	MaxGap time.Duration

	// MaxEventDuration caps the length of a single event. Events
	// running longer are closed and restarted.
	MaxEventDuration time.Duration
}

// DefaultSegmenterConfig returns the default segmentation thresholds
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		SampleInterval:   5 * time.Second,
		MaxGap:           2 * time.Minute,
		MaxEventDuration: 4 * time.Hour,
	}
}

// Segmenter collapses a stream of point-in-time samples into
// non-overlapping activity events. It owns exactly one piece of state,
// the currently open event, and is synchronous: callers feed it one
// sample at a time and persist whatever closed event it hands back.
type Segmenter struct {
	config     SegmenterConfig
	open       *types.Event
	lastSample time.Time
	logger     logging.Logger
}

// NewSegmenter creates a segmenter with the given thresholds
func NewSegmenter(config SegmenterConfig, logger logging.Logger) *Segmenter {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Segmenter{
		config: config,
		logger: logger,
	}
}

// Ingest consumes one sample and returns the event it closed, if any.
// The returned event always satisfies EndTime > StartTime; closures
// that would produce a zero-length event are discarded.
func (s *Segmenter) Ingest(sample types.Sample) *types.Event {
	if s.open == nil {
		s.openEvent(sample)
		return nil
	}

	gap := sample.Timestamp.Sub(s.lastSample)
	gapExceeded := gap > s.config.MaxGap
	overMaxDuration := sample.Timestamp.Sub(s.open.StartTime) > s.config.MaxEventDuration
	same := s.open.SameActivity(sample.ProcessName, sample.WindowTitle, sample.IsIdle)

	if same && !gapExceeded && !overMaxDuration {
		// Extend: the event's effective end tracks the latest matching sample.
		s.open.EndTime = sample.Timestamp
		s.lastSample = sample.Timestamp
		return nil
	}

	closeAt := sample.Timestamp
	if gapExceeded {
		// The machine was away. Close at the last observed sample plus
		// one interval so the final instant counts, but never into the
		// gap itself.
		closeAt = s.lastSample.Add(s.config.SampleInterval)
		if closeAt.After(sample.Timestamp) {
			closeAt = sample.Timestamp
		}
	}

	closed := s.open
	closed.EndTime = closeAt

	s.openEvent(sample)

	if !closed.EndTime.After(closed.StartTime) {
		s.logger.Debug("Discarding zero-length segment",
			"start", closed.StartTime,
			"process", closed.ProcessName)
		return nil
	}

	return closed
}

// Flush closes and returns the open event at the given instant,
// leaving the segmenter empty. Returns nil when there is no open event
// or when closing it would produce a zero-length event.
func (s *Segmenter) Flush(now time.Time) *types.Event {
	if s.open == nil {
		return nil
	}

	closed := s.open
	s.open = nil

	// Cap at the last observed sample plus one interval; a flush long
	// after the final sample must not stretch the event to "now".
	end := now
	if limit := s.lastSample.Add(s.config.SampleInterval); end.After(limit) {
		end = limit
	}
	closed.EndTime = end

	if !closed.EndTime.After(closed.StartTime) {
		return nil
	}
	return closed
}

// OpenEvent returns a copy of the currently open event, with EndTime
// set to the last observed sample. Returns nil when nothing is open.
func (s *Segmenter) OpenEvent() *types.Event {
	if s.open == nil {
		return nil
	}
	open := *s.open
	return &open
}

func (s *Segmenter) openEvent(sample types.Sample) {
	s.open = &types.Event{
		StartTime:   sample.Timestamp,
		EndTime:     sample.Timestamp,
		ProcessName: sample.ProcessName,
		WindowTitle: sample.WindowTitle,
		IsIdle:      sample.IsIdle,
	}
	s.lastSample = sample.Timestamp
}
