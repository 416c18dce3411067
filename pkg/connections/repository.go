package connections

import (
	"context"
	"errors"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("connection not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type connectionModel struct {
	ID               int64  `gorm:"primaryKey;autoIncrement;column:id"`
	StoreID          int64  `gorm:"column:store_id;uniqueIndex:uq_store_platform,priority:1;not null"`
	Platform         string `gorm:"column:platform;size:50;uniqueIndex:uq_store_platform,priority:2;not null"`
	LoginID          string `gorm:"column:login_id;size:120;not null"`
	SecretCiphertext string `gorm:"column:secret_ciphertext;type:text;not null"`
	CreatedAt        time.Time
}

func (connectionModel) TableName() string {
	return "platform_connections"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&connectionModel{})
}

// Upsert replaces any existing connection for (store, platform). The unique
// index makes the replace atomic; the overwritten credential is not retained.
func (r *Repository) Upsert(ctx context.Context, storeID int64, p models.Platform, loginID, secretCiphertext string) (models.Connection, error) {
	row := connectionModel{
		StoreID:          storeID,
		Platform:         string(p),
		LoginID:          loginID,
		SecretCiphertext: secretCiphertext,
		CreatedAt:        time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{"login_id", "secret_ciphertext", "created_at"}),
	}).Create(&row).Error
	if err != nil {
		return models.Connection{}, err
	}

	// The conflict path does not refresh the struct's primary key, so read the
	// surviving row back.
	var saved connectionModel
	if err := r.db.WithContext(ctx).First(&saved, "store_id = ? AND platform = ?", storeID, string(p)).Error; err != nil {
		return models.Connection{}, err
	}
	return toDomain(saved), nil
}

// get returns the stored row including the secret ciphertext. Internal to the
// package; callers outside go through Service.
func (r *Repository) get(ctx context.Context, storeID int64, p models.Platform) (connectionModel, error) {
	var row connectionModel
	result := r.db.WithContext(ctx).First(&row, "store_id = ? AND platform = ?", storeID, string(p))
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return connectionModel{}, ErrNotFound
	}
	return row, result.Error
}

func (r *Repository) Get(ctx context.Context, storeID int64, p models.Platform) (models.Connection, error) {
	row, err := r.get(ctx, storeID, p)
	if err != nil {
		return models.Connection{}, err
	}
	return toDomain(row), nil
}

// List returns connections in creation order, secrets omitted.
func (r *Repository) List(ctx context.Context) ([]models.Connection, error) {
	var rows []connectionModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Connection, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

func (r *Repository) Delete(ctx context.Context, storeID int64, p models.Platform) error {
	result := r.db.WithContext(ctx).Where("store_id = ? AND platform = ?", storeID, string(p)).Delete(&connectionModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toDomain(row connectionModel) models.Connection {
	return models.Connection{
		ID:        row.ID,
		StoreID:   row.StoreID,
		Platform:  models.Platform(row.Platform),
		LoginID:   row.LoginID,
		CreatedAt: row.CreatedAt,
	}
}
