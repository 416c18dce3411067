package templates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
	"gorm.io/gorm"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrEmptyTemplate    = errors.New("template name and body required")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type templateModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name      string `gorm:"column:name;size:120;not null"`
	Body      string `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time
}

func (templateModel) TableName() string {
	return "reply_templates"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&templateModel{})
}

func (r *Repository) Create(ctx context.Context, name, body string) (models.ReplyTemplate, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(body) == "" {
		return models.ReplyTemplate{}, ErrEmptyTemplate
	}
	row := templateModel{Name: name, Body: body, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.ReplyTemplate{}, err
	}
	return toDomain(row), nil
}

func (r *Repository) Get(ctx context.Context, id int64) (models.ReplyTemplate, error) {
	var row templateModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.ReplyTemplate{}, ErrTemplateNotFound
	}
	if result.Error != nil {
		return models.ReplyTemplate{}, result.Error
	}
	return toDomain(row), nil
}

// List returns templates in creation order with bodies omitted; the listing
// surface only needs id and name.
func (r *Repository) List(ctx context.Context) ([]models.ReplyTemplate, error) {
	var rows []templateModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.ReplyTemplate, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.ReplyTemplate{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

func toDomain(row templateModel) models.ReplyTemplate {
	return models.ReplyTemplate{ID: row.ID, Name: row.Name, Body: row.Body, CreatedAt: row.CreatedAt}
}
