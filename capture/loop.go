// Package capture pulls fixed-size PCM frames from an input device on a
// dedicated goroutine and hands them to the recording writer through a
// bounded queue.
package capture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
)

// Loop is one capture run. It is not reusable.
type Loop struct {
	dev         Device
	profile     audio.Profile
	pushTimeout time.Duration
	metrics     *observability.RecorderMetrics
	log         *logger.Logger

	frames   chan audio.Frame
	done     chan struct{}
	stop     atomic.Bool
	captured atomic.Int64
	dropped  atomic.Int64
	err      error
}

// NewLoop prepares a loop over dev. Start launches it.
func NewLoop(dev Device, profile audio.Profile, cfg Config, metrics *observability.RecorderMetrics, log *logger.Logger) *Loop {
	if metrics == nil {
		metrics = observability.NopRecorderMetrics()
	}
	return &Loop{
		dev:         dev,
		profile:     profile,
		pushTimeout: cfg.PushTimeout,
		metrics:     metrics,
		log:         log.WithComponent("capture"),
		frames:      make(chan audio.Frame, cfg.QueueSize),
		done:        make(chan struct{}),
	}
}

// Start runs the loop on its own goroutine until Stop, ctx end, or a read
// error. The frame queue is closed when the loop exits.
func (l *Loop) Start(ctx context.Context) {
	go l.run(ctx)
}

// Frames is the hand-off queue.
func (l *Loop) Frames() <-chan audio.Frame { return l.frames }

// Stop asks the loop to exit before its next read.
func (l *Loop) Stop() { l.stop.Store(true) }

// Stopping reports whether Stop has been called.
func (l *Loop) Stopping() bool { return l.stop.Load() }

// Done is closed once the loop has exited and closed the queue.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Err is the read error that ended the loop, if any. Valid after Done.
func (l *Loop) Err() error {
	<-l.done
	return l.err
}

// Captured is the number of frames read from the device.
func (l *Loop) Captured() int64 { return l.captured.Load() }

// Dropped is the number of frames discarded because the queue stayed full.
func (l *Loop) Dropped() int64 { return l.dropped.Load() }

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer close(l.frames)

	frameBytes := l.profile.FrameBytes()
	timer := time.NewTimer(l.pushTimeout)
	defer timer.Stop()

	for {
		if l.stop.Load() || ctx.Err() != nil {
			l.log.Debug("Capture loop stopping", map[string]interface{}{
				"captured": l.captured.Load(),
				"dropped":  l.dropped.Load(),
			})
			return
		}

		buf := make([]byte, frameBytes)
		if err := l.dev.ReadFrame(buf); err != nil {
			if l.stop.Load() {
				// a read interrupted by stop is a normal end
				l.log.Debug("Capture read ended after stop", map[string]interface{}{"error": err.Error()})
				return
			}
			l.err = errors.DeviceError("input", err)
			l.log.Error("Audio capture failed", map[string]interface{}{
				"error":    err.Error(),
				"captured": l.captured.Load(),
			})
			return
		}
		l.captured.Add(1)
		l.metrics.FrameCaptured(ctx)

		l.push(ctx, timer, audio.Frame{Bytes: buf, CapturedAt: time.Now()})
	}
}

// push blocks at most pushTimeout; a frame that cannot be queued in time is dropped.
func (l *Loop) push(ctx context.Context, timer *time.Timer, f audio.Frame) {
	select {
	case l.frames <- f:
		return
	default:
	}

	timer.Reset(l.pushTimeout)
	select {
	case l.frames <- f:
	case <-timer.C:
		n := l.dropped.Add(1)
		l.metrics.FrameDropped(ctx)
		l.log.Warn("Writer not keeping up, frame dropped", map[string]interface{}{
			"dropped":    n,
			"timeout_ms": l.pushTimeout.Milliseconds(),
		})
	case <-ctx.Done():
		l.dropped.Add(1)
	}
}
