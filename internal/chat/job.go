package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/reloadggg/chatbot-rag/internal/ai"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// QueryJob is an asynchronously processed knowledge-base question. The
// effective provider config is snapshotted at enqueue time so the worker
// does not need to re-resolve credentials.
type QueryJob struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	SessionID string `gorm:"size:26;index;not null" json:"session_id"`
	UserType  string `gorm:"size:16;not null" json:"user_type"`

	Question  string `gorm:"type:text;not null" json:"question"`
	APIConfig string `gorm:"type:text;not null" json:"-"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_query_job_idempo,unique" json:"-"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	ResultMessageID *uint64 `gorm:"index" json:"result_message_id,omitempty"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QueryJob) TableName() string { return "query_jobs" }

func (j *QueryJob) Config() (ai.ProviderConfig, error) {
	var cfg ai.ProviderConfig
	if j.APIConfig == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(j.APIConfig), &cfg); err != nil {
		return ai.ProviderConfig{}, err
	}
	return cfg, nil
}

// CreateJobOrGetExisting inserts the job; when the idempotency key collides
// with an earlier job the existing one is returned instead.
func (s *Store) CreateJobOrGetExisting(ctx context.Context, job *QueryJob) (*QueryJob, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := s.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	var existing QueryJob
	getErr := s.db.WithContext(ctx).
		Where("idempotency_key = ?", *job.IdempotencyKey).
		First(&existing).Error
	if getErr == nil {
		return &existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (s *Store) GetJob(ctx context.Context, id string) (*QueryJob, error) {
	var job QueryJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) MarkJobRunning(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&QueryJob{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (s *Store) MarkJobSucceeded(ctx context.Context, id string, assistantMsgID uint64) error {
	return s.db.WithContext(ctx).Model(&QueryJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": assistantMsgID,
			"error":             nil,
		}).Error
}

func (s *Store) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return s.db.WithContext(ctx).Model(&QueryJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}
