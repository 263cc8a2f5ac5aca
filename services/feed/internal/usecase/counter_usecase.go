package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/persistent"
)

const (
	SweepLockKey = "lock:counter-sweep"

	recountPriority = 8
)

type CounterUseCase interface {
	// ApplyLikeDelta atomically adjusts the cached like count. On failure the
	// post is queued for a recount and recounted in place; the error is
	// returned only when that recount fails too.
	ApplyLikeDelta(ctx context.Context, postID string, delta int64) error
	// MarkDirty queues a post for the next sweep.
	MarkDirty(postID, reason string)
	// Repair queues a post whose like rows may have changed without a
	// matching delta and recounts it in place.
	Repair(ctx context.Context, postID, reason string)
	CommentCount(ctx context.Context, postID string) (int64, error)
	CommentCounts(ctx context.Context, postIDs []string) (map[string]int64, error)
	Recount(ctx context.Context, postID string) (int64, error)
	// Sweep recounts dirty posts and removes orphaned comments and likes.
	// Only one replica sweeps per interval.
	Sweep(ctx context.Context) (*entity.SweepReport, error)
	SweepOrphans(ctx context.Context) (comments int64, likes int64, err error)
	// ReconcileAll recounts every post and returns how many were visited.
	ReconcileAll(ctx context.Context, batchSize int) (int, error)
	HandleRecountTask(ctx context.Context, body []byte) error
	RunSweeper(ctx context.Context, interval time.Duration)
}

type counterUseCase struct {
	store     persistent.Store
	dirty     DirtySet
	locker    Locker
	publisher EventPublisher
	lockTTL   time.Duration
	logger    *logger.Logger
}

func NewCounterUseCase(
	store persistent.Store,
	dirty DirtySet,
	locker Locker,
	publisher EventPublisher,
	lockTTL time.Duration,
	logger *logger.Logger,
) CounterUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &counterUseCase{
		store:     store,
		dirty:     dirty,
		locker:    locker,
		publisher: publisher,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

func (uc *counterUseCase) ApplyLikeDelta(ctx context.Context, postID string, delta int64) error {
	err := uc.store.IncrementLikeCount(ctx, postID, delta)
	if err == nil {
		return nil
	}

	// A missing post leaves an orphaned like for the sweep; nothing to recount.
	if errors.Is(err, entity.ErrNotFound) {
		return err
	}

	// The increment may have committed before the error surfaced.
	uc.logger.Error("[COUNTER] Failed to apply delta %d to post %s: %v", delta, postID, err)
	uc.markDirty(postID, "delta failed")
	if _, rerr := uc.Recount(ctx, postID); rerr != nil {
		uc.logger.Warn("[COUNTER] Recount of post %s deferred to sweep: %v", postID, rerr)
		return fmt.Errorf("failed to update like count: %w", err)
	}
	return nil
}

func (uc *counterUseCase) MarkDirty(postID, reason string) {
	uc.markDirty(postID, reason)
}

// Repair marks first: a recount racing an in-flight delta can still drift,
// and the sweep settles it.
func (uc *counterUseCase) Repair(ctx context.Context, postID, reason string) {
	uc.markDirty(postID, reason)
	if _, err := uc.Recount(ctx, postID); err != nil && !errors.Is(err, entity.ErrNotFound) {
		uc.logger.Warn("[COUNTER] Recount of post %s deferred to sweep: %v", postID, err)
	}
}

// markDirty runs on a fresh context so a cancelled request still records the drift.
func (uc *counterUseCase) markDirty(postID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := uc.dirty.Add(ctx, postID); err != nil {
		uc.logger.Error("[COUNTER] Failed to mark post %s dirty: %v", postID, err)
	}
	task := entity.RecountTask{PostID: postID, Reason: reason}
	if err := uc.publisher.Publish(ctx, entity.EventRecount, task, recountPriority); err != nil {
		uc.logger.Warn("[COUNTER] Failed to publish recount task for post %s: %v", postID, err)
	}
}

func (uc *counterUseCase) CommentCount(ctx context.Context, postID string) (int64, error) {
	return uc.store.CountComments(ctx, persistent.CommentFilter{PostID: postID})
}

func (uc *counterUseCase) CommentCounts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	if len(postIDs) == 0 {
		return map[string]int64{}, nil
	}
	return uc.store.CountCommentsByPost(ctx, postIDs)
}

func (uc *counterUseCase) Recount(ctx context.Context, postID string) (int64, error) {
	count, err := uc.store.RecountLikes(ctx, postID)
	if err != nil {
		return 0, err
	}
	uc.logger.Debug("[COUNTER] Recounted post %s: %d likes", postID, count)
	return count, nil
}

func (uc *counterUseCase) Sweep(ctx context.Context) (*entity.SweepReport, error) {
	report := &entity.SweepReport{}

	unlock, ok, err := uc.locker.TryLock(ctx, SweepLockKey, uc.lockTTL)
	if err != nil {
		return report, err
	}
	if !ok {
		report.Skipped = true
		return report, nil
	}
	defer unlock()

	ids, err := uc.dirty.Drain(ctx)
	if err != nil {
		// Whatever was popped before the failure must not be lost.
		if len(ids) > 0 {
			uc.readd(ids)
		}
		return report, err
	}

	var failed []string
	for _, id := range ids {
		if _, err := uc.store.RecountLikes(ctx, id); err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				continue
			}
			uc.logger.Error("[SWEEP] Failed to recount post %s: %v", id, err)
			failed = append(failed, id)
			continue
		}
		report.Recounted++
	}
	if len(failed) > 0 {
		report.Failed = len(failed)
		uc.readd(failed)
	}

	report.OrphanComments, report.OrphanLikes, err = uc.store.DeleteOrphans(ctx)
	if err != nil {
		uc.logger.Error("[SWEEP] Failed to delete orphans: %v", err)
		return report, err
	}

	if report.Recounted > 0 || report.Failed > 0 || report.OrphanComments > 0 || report.OrphanLikes > 0 {
		uc.logger.Info("[SWEEP] recounted=%d failed=%d orphan_comments=%d orphan_likes=%d",
			report.Recounted, report.Failed, report.OrphanComments, report.OrphanLikes)
	}
	return report, nil
}

func (uc *counterUseCase) readd(ids []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := uc.dirty.Add(ctx, ids...); err != nil {
		uc.logger.Error("[SWEEP] Failed to re-add %d dirty posts: %v", len(ids), err)
	}
}

func (uc *counterUseCase) SweepOrphans(ctx context.Context) (int64, int64, error) {
	return uc.store.DeleteOrphans(ctx)
}

func (uc *counterUseCase) ReconcileAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("%w: batch size must be positive", entity.ErrInvalid)
	}

	visited := 0
	afterID := ""
	for {
		ids, err := uc.store.ListPostIDs(ctx, afterID, batchSize)
		if err != nil {
			return visited, err
		}
		for _, id := range ids {
			if _, err := uc.store.RecountLikes(ctx, id); err != nil && !errors.Is(err, entity.ErrNotFound) {
				return visited, fmt.Errorf("failed to recount post %s: %w", id, err)
			}
			visited++
		}
		if len(ids) < batchSize {
			return visited, nil
		}
		afterID = ids[len(ids)-1]
	}
}

func (uc *counterUseCase) HandleRecountTask(ctx context.Context, body []byte) error {
	var task entity.RecountTask
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("%w: malformed recount task: %v", entity.ErrInvalid, err)
	}
	if task.PostID == "" {
		return fmt.Errorf("%w: recount task without post id", entity.ErrInvalid)
	}

	if _, err := uc.Recount(ctx, task.PostID); err != nil && !errors.Is(err, entity.ErrNotFound) {
		return err
	}
	return nil
}

func (uc *counterUseCase) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info("[SWEEP] Counter sweeper started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("[SWEEP] Counter sweeper stopped")
			return
		case <-ticker.C:
			if _, err := uc.Sweep(ctx); err != nil && ctx.Err() == nil {
				uc.logger.Error("[SWEEP] Sweep failed, retrying next cycle: %v", err)
			}
		}
	}
}
