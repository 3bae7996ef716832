package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job is one uploaded photo awaiting final pattern generation. The preview
// endpoint creates it; the final endpoint looks it up by id. Jobs are swept
// after their TTL together with the uploaded file.
type Job struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	UploadPath string         `json:"-" gorm:"not null"`
	Filename   string         `json:"filename"`
	Format     string         `json:"format"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// BeforeCreate sets UUID if not already set
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// GetAllModels returns all models for auto-migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Job{},
	}
}
