package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskshare/internal/cache"
	"taskshare/internal/models"
)

// CachedTaskService keeps each user's dashboard stats in the cache and drops
// them whenever one of that user's tasks changes. Everything else passes
// through to the wrapped service.
type CachedTaskService struct {
	TaskService
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedTaskService(taskService TaskService, cacheInstance cache.Cache, ttl time.Duration) *CachedTaskService {
	return &CachedTaskService{
		TaskService: taskService,
		cache:       cacheInstance,
		ttl:         ttl,
	}
}

func statsCacheKey(userID uint) string {
	return fmt.Sprintf("stats:%d", userID)
}

// Stats are computed against the current day, so the cached copy never
// outlives it.
func (s *CachedTaskService) Stats(ctx context.Context, actorID uint) (TaskStats, error) {
	key := statsCacheKey(actorID)

	var cached TaskStats
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("cache: stats lookup for user %d failed: %v", actorID, err)
	}

	stats, err := s.TaskService.Stats(ctx, actorID)
	if err != nil {
		return stats, err
	}

	ttl := s.ttl
	if untilMidnight := time.Until(startOfDay(time.Now()).Add(24 * time.Hour)); untilMidnight < ttl {
		ttl = untilMidnight
	}
	if ttl > 0 {
		if err := s.cache.Set(ctx, key, stats, ttl); err != nil {
			log.Printf("cache: storing stats for user %d failed: %v", actorID, err)
		}
	}
	return stats, nil
}

func (s *CachedTaskService) CreateTask(ctx context.Context, actorID uint, in TaskInput) (*models.Task, error) {
	task, err := s.TaskService.CreateTask(ctx, actorID, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, task.UserID)
	return task, nil
}

func (s *CachedTaskService) QuickAdd(ctx context.Context, actorID uint, title string) (*models.Task, error) {
	task, err := s.TaskService.QuickAdd(ctx, actorID, title)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, task.UserID)
	return task, nil
}

// UpdateTask and ToggleTask may be called by a grantee; the stats that change
// are the owner's.
func (s *CachedTaskService) UpdateTask(ctx context.Context, actorID, taskID uint, in TaskInput) (*models.Task, error) {
	task, err := s.TaskService.UpdateTask(ctx, actorID, taskID, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, task.UserID)
	return task, nil
}

func (s *CachedTaskService) ToggleTask(ctx context.Context, actorID, taskID uint) (*models.Task, error) {
	task, err := s.TaskService.ToggleTask(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, task.UserID)
	return task, nil
}

// Only the owner can delete, so the actor's stats are the ones affected.
func (s *CachedTaskService) DeleteTask(ctx context.Context, actorID, taskID uint) error {
	if err := s.TaskService.DeleteTask(ctx, actorID, taskID); err != nil {
		return err
	}
	s.invalidate(ctx, actorID)
	return nil
}

// InvalidateUser drops cached data for a user, e.g. after account deletion.
func (s *CachedTaskService) InvalidateUser(ctx context.Context, userID uint) {
	s.invalidate(ctx, userID)
}

func (s *CachedTaskService) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
		log.Printf("cache: invalidating stats for user %d failed: %v", userID, err)
	}
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}
