package replies

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPosted = "POSTED"
	StatusFailed = "FAILED"
)

// Record is one dispatch attempt against one review, kept for audit.
type Record struct {
	ID         int64             `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	BatchID    string            `json:"batch_id" gorm:"column:batch_id;size:36;index"`
	ReviewID   int64             `json:"review_id" gorm:"column:review_id;index"`
	TemplateID int64             `json:"template_id" gorm:"column:template_id"`
	Content    string            `json:"content" gorm:"column:content;type:text"`
	Status     string            `json:"status" gorm:"column:status;size:20"`
	FailReason string            `json:"fail_reason,omitempty" gorm:"column:fail_reason;type:text"`
	Context    datatypes.JSONMap `json:"context,omitempty" gorm:"column:context"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (Record) TableName() string {
	return "replies"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	rec.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(rec).Error
}

// List returns the most recent attempts first.
func (r *Repository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []Record
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByReview returns attempts for one review, most recent first.
func (r *Repository) ListByReview(ctx context.Context, reviewID int64) ([]Record, error) {
	var rows []Record
	if err := r.db.WithContext(ctx).Where("review_id = ?", reviewID).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
