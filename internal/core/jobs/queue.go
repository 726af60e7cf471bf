package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Queue manages job queue operations
type Queue struct {
	db *gorm.DB
}

// NewQueue creates a new job queue
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue adds a new job to the queue
func (q *Queue) Enqueue(ctx context.Context, restaurantID uuid.UUID, jobType string, payload interface{}) (*Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	job := &Job{
		RestaurantID: restaurantID,
		Queue:        "default",
		Type:         jobType,
		Payload:      payloadJSON,
		Status:       StatusPending,
		MaxRetries:   3,
	}

	if err := q.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// Dequeue retrieves the next job to process from the queue
func (q *Queue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	var job Job

	// Transaction to ensure atomic dequeue
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("queue = ? AND status IN ?", queueName,
			[]JobStatus{StatusPending, StatusRetrying}).
			Where("scheduled_at IS NULL OR scheduled_at <= ?", time.Now()).
			Order("created_at ASC").Limit(1)

		if err := query.First(&job).Error; err != nil {
			return err
		}

		now := time.Now()
		job.Status = StatusProcessing
		job.StartedAt = &now
		job.Attempts++

		return tx.Save(&job).Error
	})

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // No jobs available
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	return &job, nil
}

// MarkCompleted marks a job as completed
func (q *Queue) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now()
	return q.db.WithContext(ctx).Model(&Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":       StatusCompleted,
		"completed_at": now,
	}).Error
}

// MarkFailed marks a job as failed, scheduling a retry when attempts remain
func (q *Queue) MarkFailed(ctx context.Context, jobID uuid.UUID, jobErr error) error {
	var job Job
	if err := q.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to find job: %w", err)
	}

	now := time.Now()
	job.Error = jobErr.Error()
	job.FailedAt = &now

	if job.Attempts < job.MaxRetries {
		scheduleAt := now.Add(time.Duration(calculateBackoff(job.Attempts)) * time.Second)
		job.Status = StatusRetrying
		job.ScheduledAt = &scheduleAt
	} else {
		job.Status = StatusFailed
	}

	return q.db.WithContext(ctx).Save(&job).Error
}

// DeleteOldJobs deletes completed/failed jobs older than the specified duration
func (q *Queue) DeleteOldJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result := q.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?", []JobStatus{StatusCompleted, StatusFailed}, cutoff).
		Delete(&Job{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// calculateBackoff calculates exponential backoff time in seconds
func calculateBackoff(attempt int) int {
	backoff := 1 << attempt // 2^attempt
	if backoff > 300 {
		backoff = 300 // Max 5 minutes
	}
	return backoff
}
