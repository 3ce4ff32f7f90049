package services

import (
	"fmt"
	"time"

	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/platform"
	"timeglass/internal/types"
)

// SamplingError wraps a transient probe failure. The sampling loop
// continues; the failed observation is recorded as the unknown state.
type SamplingError struct {
	Err error
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling failed: %v", e.Err)
}

func (e *SamplingError) Unwrap() error {
	return e.Err
}

// Sampler turns platform probes into Samples: it applies the idle
// threshold, normalizes window titles, and degrades probe failures
// into the unknown state instead of propagating them.
type Sampler struct {
	api           platform.ActivityAPI
	idleThreshold time.Duration
	lastIdle      bool
	logger        logging.Logger
}

// NewSampler creates a sampler over the given platform API
func NewSampler(api platform.ActivityAPI, idleThreshold time.Duration, logger logging.Logger) *Sampler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Sampler{
		api:           api,
		idleThreshold: idleThreshold,
		logger:        logger,
	}
}

// Poll observes the current foreground state. It always returns a
// usable sample; when a probe fails the sample carries the unknown
// triple (nil process and window, idle flag from the last known value)
// and the error describes the failure.
func (s *Sampler) Poll(now time.Time) (types.Sample, error) {
	idle, err := s.isIdle()
	if err != nil {
		return types.Sample{Timestamp: now, IsIdle: s.lastIdle}, &SamplingError{Err: err}
	}
	s.lastIdle = idle

	if idle {
		// Idle periods carry no process or window; who was focused
		// while the user was away is not meaningful.
		return types.Sample{Timestamp: now, IsIdle: true}, nil
	}

	info, err := s.api.ForegroundWindow()
	if err != nil {
		return types.Sample{Timestamp: now, IsIdle: false}, &SamplingError{Err: err}
	}

	var processName *string
	if info.ProcessName != "" {
		name := info.ProcessName
		processName = &name
	}

	var windowTitle *string
	if info.WindowTitle != "" {
		title := info.WindowTitle
		windowTitle = &title
	}

	return types.Sample{
		Timestamp:   now,
		ProcessName: processName,
		WindowTitle: NormalizeWindowTitle(processName, windowTitle),
		IsIdle:      false,
	}, nil
}

func (s *Sampler) isIdle() (bool, error) {
	idleFor, err := s.api.IdleDuration()
	if err != nil {
		return false, err
	}
	return idleFor >= s.idleThreshold, nil
}
