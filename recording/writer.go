package recording

import (
	"context"
	"strconv"
	"time"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/storage"
)

// FrameSource is the producing side of the hand-off queue.
type FrameSource interface {
	Frames() <-chan audio.Frame
	// Stop asks the producer to finish; it closes the queue when it does.
	Stop()
	// Err is the producer's terminal error, valid once the queue is closed.
	Err() error
}

// Writer streams frames into a sink object.
type Writer struct {
	sink             storage.Storage
	profile          audio.Profile
	popTimeout       time.Duration
	progressInterval time.Duration
	metrics          *observability.RecorderMetrics
	log              *logger.Logger
}

// WriteResult summarizes a finished stream.
type WriteResult struct {
	Key    string
	Frames int
	// Bytes counts PCM bytes after the header.
	Bytes    int64
	Duration time.Duration
}

func NewWriter(sink storage.Storage, cfg Config, metrics *observability.RecorderMetrics, log *logger.Logger) *Writer {
	if metrics == nil {
		metrics = observability.NopRecorderMetrics()
	}
	return &Writer{
		sink:             sink,
		profile:          cfg.Profile,
		popTimeout:       cfg.PopTimeout,
		progressInterval: cfg.ProgressInterval,
		metrics:          metrics,
		log:              log.WithComponent("writer"),
	}
}

// Metadata is stored with every recording.
func (w *Writer) Metadata(createdAt time.Time) storage.Metadata {
	return storage.Metadata{
		"content_type": "audio/wav",
		"sample_rate":  strconv.Itoa(w.profile.SampleRate),
		"channels":     strconv.Itoa(w.profile.Channels),
		"format":       "WAV",
		"streaming":    "true",
		"created_at":   createdAt.UTC().Format(time.RFC3339),
	}
}

// Open creates the sink object and writes the streaming header. On failure
// nothing is left in the sink.
func (w *Writer) Open(ctx context.Context, key string, createdAt time.Time) (storage.ObjectWriter, error) {
	obj, err := w.sink.Create(ctx, key, w.Metadata(createdAt))
	if err != nil {
		return nil, errors.SinkError(key, err)
	}
	if _, err := obj.Write(audio.StreamingHeader(w.profile)); err != nil {
		_ = obj.Abort()
		return nil, errors.SinkError(key, err)
	}
	return obj, nil
}

// Run drains src into obj until the queue is closed. The object is closed
// when the producer ended cleanly and aborted otherwise. A write failure
// aborts the object and stops the producer.
func (w *Writer) Run(ctx context.Context, key string, obj storage.ObjectWriter, src FrameSource) (WriteResult, error) {
	log := w.log.WithFields(map[string]interface{}{logger.FieldSinkKey: key})
	res := WriteResult{Key: key}
	start := time.Now()
	lastProgress := start

	timer := time.NewTimer(w.popTimeout)
	defer timer.Stop()

	frames := src.Frames()
	for {
		timer.Reset(w.popTimeout)
		select {
		case f, ok := <-frames:
			if !ok {
				res.Duration = time.Since(start)
				return res, w.finish(key, obj, src.Err(), res, log)
			}
			if _, err := obj.Write(f.Bytes); err != nil {
				log.Error("Sink write failed, aborting recording", logger.ErrorFields("write", err))
				src.Stop()
				_ = obj.Abort()
				drain(frames)
				return res, errors.SinkError(key, err)
			}
			res.Frames++
			res.Bytes += int64(len(f.Bytes))
			w.metrics.BytesWritten(ctx, len(f.Bytes))

			if time.Since(lastProgress) >= w.progressInterval {
				lastProgress = time.Now()
				log.Info("Streaming", map[string]interface{}{
					"duration_s": time.Since(start).Seconds(),
					"bytes":      res.Bytes,
				})
			}

		case <-timer.C:
			if ctx.Err() != nil {
				src.Stop()
			}
		}
	}
}

func (w *Writer) finish(key string, obj storage.ObjectWriter, srcErr error, res WriteResult, log *logger.Logger) error {
	if srcErr != nil {
		if err := obj.Abort(); err != nil {
			log.Warn("Sink abort failed", logger.ErrorFields("abort", err))
		}
		return srcErr
	}
	if err := obj.Close(); err != nil {
		log.Error("Sink finalize failed", logger.ErrorFields("close", err))
		return errors.SinkError(key, err)
	}
	log.Info("Recording finalized", map[string]interface{}{
		"frames":     res.Frames,
		"bytes":      res.Bytes,
		"audio_s":    w.profile.Seconds(int(res.Bytes)),
		"duration_s": res.Duration.Seconds(),
	})
	return nil
}

func drain(frames <-chan audio.Frame) {
	for range frames {
	}
}
