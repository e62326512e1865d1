// Package tasks runs deferred work items outside of request transactions
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/courseforge/backend/internal/media"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeMediaCleanup is the asynq task type that removes an orphaned video
	TypeMediaCleanup = "media:cleanup"
	// QueueCleanup is the queue media cleanup tasks are placed on
	QueueCleanup = "cleanup"

	defaultMaxRetry      = 5
	inlineCleanupTimeout = 30 * time.Second
)

// MediaCleanupPayload is the body of a media:cleanup task
type MediaCleanupPayload struct {
	VideoURL string `json:"videoUrl"`
}

// NewMediaCleanupTask builds a media:cleanup task for a video URL
func NewMediaCleanupTask(videoURL string) (*asynq.Task, error) {
	if videoURL == "" {
		return nil, errors.New("video url is required")
	}
	payload, err := json.Marshal(MediaCleanupPayload{VideoURL: videoURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeMediaCleanup, payload), nil
}

// TaskEnqueuer is the subset of *asynq.Client used to schedule tasks
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueScheduler schedules media cleanup on the Redis-backed asynq queue
type QueueScheduler struct {
	client   TaskEnqueuer
	maxRetry int
	logger   *zap.Logger
}

// NewQueueScheduler creates a scheduler that enqueues media:cleanup tasks
func NewQueueScheduler(client TaskEnqueuer, logger *zap.Logger) *QueueScheduler {
	return &QueueScheduler{
		client:   client,
		maxRetry: defaultMaxRetry,
		logger:   logger,
	}
}

// ScheduleCleanup enqueues removal of a video
func (s *QueueScheduler) ScheduleCleanup(ctx context.Context, videoURL string) error {
	task, err := NewMediaCleanupTask(videoURL)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task, asynq.Queue(QueueCleanup), asynq.MaxRetry(s.maxRetry))
	if err != nil {
		return fmt.Errorf("failed to enqueue media cleanup: %w", err)
	}

	s.logger.Debug("media cleanup enqueued", zap.String("url", videoURL), zap.String("task_id", info.ID))
	return nil
}

// InlineScheduler runs media cleanup on a detached goroutine.
// It is used when no Redis is configured.
type InlineScheduler struct {
	cleaner media.Cleaner
	timeout time.Duration
	wg      sync.WaitGroup
	logger  *zap.Logger
}

// NewInlineScheduler creates a scheduler that cleans up in-process
func NewInlineScheduler(cleaner media.Cleaner, logger *zap.Logger) *InlineScheduler {
	return &InlineScheduler{
		cleaner: cleaner,
		timeout: inlineCleanupTimeout,
		logger:  logger,
	}
}

// ScheduleCleanup starts the cleanup and returns immediately
func (s *InlineScheduler) ScheduleCleanup(ctx context.Context, videoURL string) error {
	if videoURL == "" {
		return errors.New("video url is required")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		if err := s.cleaner.Cleanup(ctx, videoURL); err != nil {
			s.logger.Warn("media cleanup failed", zap.String("url", videoURL), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every started cleanup has finished
func (s *InlineScheduler) Wait() {
	s.wg.Wait()
}

// MediaCleanupHandler processes media:cleanup tasks in the worker
type MediaCleanupHandler struct {
	cleaner media.Cleaner
	logger  *zap.Logger
}

// NewMediaCleanupHandler creates the media:cleanup task handler
func NewMediaCleanupHandler(cleaner media.Cleaner, logger *zap.Logger) *MediaCleanupHandler {
	return &MediaCleanupHandler{cleaner: cleaner, logger: logger}
}

// ProcessTask implements asynq.Handler. A malformed payload is not retried.
func (h *MediaCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload MediaCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid media cleanup payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.VideoURL == "" {
		return fmt.Errorf("media cleanup payload has no url: %w", asynq.SkipRetry)
	}

	if err := h.cleaner.Cleanup(ctx, payload.VideoURL); err != nil {
		h.logger.Warn("media cleanup attempt failed", zap.String("url", payload.VideoURL), zap.Error(err))
		return err
	}

	h.logger.Info("media cleaned up", zap.String("url", payload.VideoURL))
	return nil
}
