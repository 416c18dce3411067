package stores

import (
	"context"
	"errors"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("store not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type storeModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name      string `gorm:"column:name;size:120;not null"`
	CreatedAt time.Time
}

func (storeModel) TableName() string {
	return "stores"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&storeModel{})
}

func (r *Repository) Create(ctx context.Context, name string) (models.Store, error) {
	row := storeModel{Name: name, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Store{}, err
	}
	return toDomain(row), nil
}

func (r *Repository) Get(ctx context.Context, id int64) (models.Store, error) {
	var row storeModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Store{}, ErrNotFound
	}
	if result.Error != nil {
		return models.Store{}, result.Error
	}
	return toDomain(row), nil
}

// List returns stores in creation order.
func (r *Repository) List(ctx context.Context) ([]models.Store, error) {
	var rows []storeModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Store, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

func toDomain(row storeModel) models.Store {
	return models.Store{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}
}
