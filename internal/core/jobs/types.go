package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusRetrying   JobStatus = "retrying"
)

// Job types
const (
	TypeSendSMS = "send_sms"
)

// Job represents a background job in the database
type Job struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RestaurantID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Queue        string         `gorm:"type:varchar(100);not null;index"`
	Type         string         `gorm:"type:varchar(100);not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`

	Status JobStatus `gorm:"type:varchar(20);not null;default:'pending';index"`

	Attempts   int `gorm:"not null;default:0"`
	MaxRetries int `gorm:"not null;default:3"`

	ScheduledAt *time.Time `gorm:"index"` // For delayed and retried jobs
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time

	Error string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for Job model
func (Job) TableName() string {
	return "jobs"
}

// JobHandler is the interface that job handlers must implement
type JobHandler interface {
	Handle(ctx context.Context, job *Job) error
	GetType() string
}

// SMSPayload is the payload for send_sms jobs
type SMSPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// WorkerConfig contains configuration for job workers
type WorkerConfig struct {
	Queue        string
	Concurrency  int
	PollInterval time.Duration
	Timeout      time.Duration
}

// DefaultWorkerConfig returns default worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Queue:        "default",
		Concurrency:  2,
		PollInterval: 1 * time.Second,
		Timeout:      1 * time.Minute,
	}
}
