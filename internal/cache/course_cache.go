// Package cache keeps serialized course aggregates in Redis and announces invalidations
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/courseforge/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// InvalidationChannel carries the IDs of courses whose aggregate changed
	InvalidationChannel = "course:invalidated"

	defaultTTL = 10 * time.Minute
)

// redisClient is the subset of *redis.Client used by the cache
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// CourseCache stores course aggregates under course:{id}
type CourseCache struct {
	rdb    redisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCourseCache creates a course cache over a Redis client
func NewCourseCache(rdb *redis.Client, logger *zap.Logger) *CourseCache {
	return newCourseCache(rdb, defaultTTL, logger)
}

func newCourseCache(rdb redisClient, ttl time.Duration, logger *zap.Logger) *CourseCache {
	return &CourseCache{rdb: rdb, ttl: ttl, logger: logger}
}

func courseKey(id int) string {
	return "course:" + strconv.Itoa(id)
}

// GetCourse returns the cached course, or nil on a miss
func (c *CourseCache) GetCourse(ctx context.Context, id int) (*models.Course, error) {
	raw, err := c.rdb.Get(ctx, courseKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read course %d from cache: %w", id, err)
	}

	var course models.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		// a corrupt entry counts as a miss
		c.logger.Warn("dropping undecodable course cache entry", zap.Int("course_id", id), zap.Error(err))
		_ = c.rdb.Del(ctx, courseKey(id)).Err()
		return nil, nil
	}
	return &course, nil
}

// SetCourse stores a course for the cache TTL
func (c *CourseCache) SetCourse(ctx context.Context, course *models.Course) error {
	raw, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("failed to marshal course: %w", err)
	}
	if err := c.rdb.Set(ctx, courseKey(course.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache course %d: %w", course.ID, err)
	}
	return nil
}

// InvalidateCourse drops the cached course and publishes its ID on InvalidationChannel
func (c *CourseCache) InvalidateCourse(ctx context.Context, courseID int) error {
	if err := c.rdb.Del(ctx, courseKey(courseID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached course %d: %w", courseID, err)
	}
	if err := c.rdb.Publish(ctx, InvalidationChannel, strconv.Itoa(courseID)).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation of course %d: %w", courseID, err)
	}
	return nil
}
