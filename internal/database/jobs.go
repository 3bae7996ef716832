package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/patternforge/diamondgrid/internal/config"
	"github.com/patternforge/diamondgrid/internal/logging"
)

// JobService handles upload job operations
type JobService struct {
	db *gorm.DB
}

// NewJobService creates a new job service
func NewJobService(db *gorm.DB) *JobService {
	return &JobService{db: db}
}

// CreateJob registers an uploaded photo for later final generation. The id
// may be preassigned so the upload file can be named after it; uuid.Nil
// generates one.
func (s *JobService) CreateJob(id uuid.UUID, uploadPath, filename, format string, payload []byte) (*Job, error) {
	job := Job{
		ID:         id,
		UploadPath: uploadPath,
		Filename:   filename,
		Format:     format,
		Payload:    datatypes.JSON(payload),
	}
	if err := s.db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return &job, nil
}

// GetJob looks up a job by id.
func (s *JobService) GetJob(id uuid.UUID) (*Job, error) {
	var job Job
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// DeleteJob removes a job row and its uploaded file.
func (s *JobService) DeleteJob(job *Job) error {
	if err := s.db.Delete(job).Error; err != nil {
		return err
	}
	if job.UploadPath != "" {
		if err := os.Remove(job.UploadPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove upload %s: %w", job.UploadPath, err)
		}
	}
	return nil
}

// SweepExpired deletes jobs older than the TTL along with their uploads.
// Returns the number of jobs swept.
func (s *JobService) SweepExpired(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	var stale []Job
	if err := s.db.Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		if err := s.DeleteJob(&stale[i]); err != nil {
			logging.WarnWithComponent(logging.ComponentJobSweeper, "failed to sweep job",
				"job_id", stale[i].ID, "error", err)
			continue
		}
		swept++
	}
	return swept, nil
}

// JobTTL reads the configured job retention from JOB_TTL_HOURS.
func JobTTL() time.Duration {
	return time.Duration(config.GetInt("JOB_TTL_HOURS", 24)) * time.Hour
}

// StartJobSweeper runs the expiry sweep on an interval until the context is
// canceled.
func StartJobSweeper(ctx context.Context, interval time.Duration) {
	svc := NewJobService(DB)
	ttl := JobTTL()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				swept, err := svc.SweepExpired(ttl)
				if err != nil {
					logging.ErrorWithComponent(logging.ComponentJobSweeper, "sweep failed", "error", err)
					continue
				}
				if swept > 0 {
					logging.InfoWithComponent(logging.ComponentJobSweeper, "swept expired jobs", "count", swept)
				}
			}
		}
	}()
}
