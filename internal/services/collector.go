package services

import (
	"context"
	"sync"
	"time"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/types"
)

// EventWriter is the narrow persistence surface the collector needs
type EventWriter interface {
	AppendEvent(ctx context.Context, event *types.Event) error
}

// CollectorConfig holds the runtime settings of the sampling loop
type CollectorConfig struct {
	SampleInterval   time.Duration
	IdleThreshold    time.Duration
	MaxGap           time.Duration
	MaxEventDuration time.Duration
}

// DefaultCollectorConfig returns the default sampling settings
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		SampleInterval:   5 * time.Second,
		IdleThreshold:    5 * time.Minute,
		MaxGap:           2 * time.Minute,
		MaxEventDuration: 4 * time.Hour,
	}
}

// SegmenterConfig derives the segmentation thresholds from the
// collector settings
func (c CollectorConfig) SegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		SampleInterval:   c.SampleInterval,
		MaxGap:           c.MaxGap,
		MaxEventDuration: c.MaxEventDuration,
	}
}

// Collector drives the sampling loop: one long-lived goroutine polls
// the sampler at a fixed interval, feeds the segmenter, and persists
// whatever events it closes. Closed events that fail to persist stay
// in memory and are retried on later ticks; they are dropped only when
// the store rejects them as invalid.
type Collector struct {
	config    CollectorConfig
	sampler   *Sampler
	segmenter *Segmenter
	events    EventWriter
	logger    logging.Logger

	mutex   sync.Mutex
	pending []types.Event
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewCollector creates a collector from its three collaborators
func NewCollector(config CollectorConfig, sampler *Sampler, events EventWriter, logger logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Collector{
		config:    config,
		sampler:   sampler,
		segmenter: NewSegmenter(config.SegmenterConfig(), logger),
		events:    events,
		logger:    logger,
	}
}

// Start begins the background sampling loop. Starting a running
// collector is a no-op.
func (c *Collector) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.loop(c.stop, c.done)

	c.logger.Info("Collector started",
		"sample_interval", c.config.SampleInterval.String(),
		"idle_threshold", c.config.IdleThreshold.String())
}

// Stop halts the loop, waits for the in-flight tick, closes the open
// event and persists everything still pending.
func (c *Collector) Stop() {
	c.mutex.Lock()
	if !c.running {
		c.mutex.Unlock()
		return
	}
	c.running = false
	stop, done := c.stop, c.done
	c.mutex.Unlock()

	close(stop)
	<-done

	c.mutex.Lock()
	if closed := c.segmenter.Flush(time.Now()); closed != nil {
		c.pending = append(c.pending, *closed)
	}
	c.mutex.Unlock()

	c.flushPending(context.Background())
	c.logger.Info("Collector stopped")
}

// IsRunning reports whether the sampling loop is active
func (c *Collector) IsRunning() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.running
}

// Config returns the collector's runtime settings
func (c *Collector) Config() CollectorConfig {
	return c.config
}

// OpenEvent returns a copy of the currently open event, or nil.
// Implements the open-event source the aggregator clips to "now".
func (c *Collector) OpenEvent() *types.Event {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.segmenter.OpenEvent()
}

// PendingCount returns the number of closed events awaiting persistence
func (c *Collector) PendingCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.pending)
}

func (c *Collector) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.tick(time.Now())
		case <-stop:
			return
		}
	}
}

// tick performs one sample-ingest-persist cycle
func (c *Collector) tick(now time.Time) {
	sample, err := c.sampler.Poll(now)
	if err != nil {
		// Transient by definition; the sample carries the unknown state.
		c.logger.Debug("Sampling probe failed", "error", err)
	}

	c.mutex.Lock()
	if closed := c.segmenter.Ingest(sample); closed != nil {
		c.pending = append(c.pending, *closed)
	}
	c.mutex.Unlock()

	c.flushPending(context.Background())
}

// flushPending tries to persist every queued event. Storage failures
// leave the event queued for the next tick; validation and overlap
// rejections are permanent, so those events are logged and dropped.
func (c *Collector) flushPending(ctx context.Context) {
	c.mutex.Lock()
	queue := c.pending
	c.pending = nil
	c.mutex.Unlock()

	var remaining []types.Event
	for i := range queue {
		event := queue[i]
		err := c.events.AppendEvent(ctx, &event)
		if err == nil {
			continue
		}

		if repoerrors.IsValidation(err) || repoerrors.IsOverlap(err) {
			c.logger.Error("Dropping unpersistable event",
				"error", err,
				"start", event.StartTime,
				"end", event.EndTime)
			continue
		}

		c.logger.Warn("Failed to persist event, will retry",
			"error", err,
			"start", event.StartTime)
		remaining = append(remaining, event)
	}

	if len(remaining) > 0 {
		c.mutex.Lock()
		c.pending = append(remaining, c.pending...)
		c.mutex.Unlock()
	}
}
