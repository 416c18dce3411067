package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("review not found")

// Repository is the canonical, deduplicated review store. The unique index on
// (platform, platform_native_id) makes re-ingestion an update, never a
// duplicate, even across concurrent syncs.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type reviewModel struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement;column:id"`
	Platform             string     `gorm:"column:platform;size:50;uniqueIndex:uq_platform_native_id,priority:1;not null"`
	PlatformNativeID     string     `gorm:"column:platform_native_id;size:100;uniqueIndex:uq_platform_native_id,priority:2;not null"`
	StoreID              int64      `gorm:"column:store_id;index;not null"`
	CustomerName         string     `gorm:"column:customer_name;size:120"`
	MenuName             string     `gorm:"column:menu_name;size:255"`
	Content              string     `gorm:"column:content;type:text"`
	ReceivedAt           time.Time  `gorm:"column:received_at;index"`
	WorkflowState        string     `gorm:"column:workflow_state;size:30;index"`
	RegisteredTemplateID *int64     `gorm:"column:registered_template_id"`
	RegisteredAt         *time.Time `gorm:"column:registered_at"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (reviewModel) TableName() string {
	return "reviews"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&reviewModel{})
}

// Upsert inserts a raw review under the dedup key or refreshes the display
// fields of the existing row. The workflow state is set only on first sight
// and is never reset by re-ingestion. The conditional insert-or-update is
// atomic with respect to the unique key, so no extra locking is needed.
//
// The returned inserted flag relies on a pre-check and is advisory under
// concurrent syncs of the same key; the row count invariant does not.
func (r *Repository) Upsert(ctx context.Context, p models.Platform, storeID int64, raw models.RawReview) (inserted bool, err error) {
	var existing int64
	err = r.db.WithContext(ctx).Model(&reviewModel{}).
		Where("platform = ? AND platform_native_id = ?", string(p), raw.PlatformNativeID).
		Count(&existing).Error
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	row := reviewModel{
		Platform:         string(p),
		PlatformNativeID: raw.PlatformNativeID,
		StoreID:          storeID,
		CustomerName:     raw.CustomerName,
		MenuName:         raw.MenuName,
		Content:          raw.Content,
		ReceivedAt:       raw.ReceivedAt,
		WorkflowState:    string(models.StatePendingRegistration),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "platform_native_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"customer_name", "menu_name", "content", "received_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return false, err
	}
	return existing == 0, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (models.CanonicalReview, error) {
	var row reviewModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.CanonicalReview{}, ErrNotFound
	}
	if result.Error != nil {
		return models.CanonicalReview{}, result.Error
	}
	return toDomain(row), nil
}

// Filter narrows a ledger query. A nil State means no state restriction (the
// "ALL" tab); From/To bound received_at inclusively.
type Filter struct {
	State *models.WorkflowState
	From  *time.Time
	To    *time.Time
}

func (r *Repository) Query(ctx context.Context, f Filter) ([]models.CanonicalReview, error) {
	query := r.db.WithContext(ctx).Model(&reviewModel{}).Order("received_at DESC")
	if f.State != nil {
		query = query.Where("workflow_state = ?", string(*f.State))
	}
	if f.From != nil {
		query = query.Where("received_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("received_at <= ?", *f.To)
	}

	var rows []reviewModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.CanonicalReview, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

// Counts returns per-state totals within the date bounds plus the grand
// total. The total mirrors the sum of the three states; "ALL" is not an
// independent bucket.
func (r *Repository) Counts(ctx context.Context, from, to *time.Time) (map[models.WorkflowState]int64, int64, error) {
	query := r.db.WithContext(ctx).Model(&reviewModel{})
	if from != nil {
		query = query.Where("received_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("received_at <= ?", *to)
	}

	var grouped []struct {
		WorkflowState string
		Count         int64
	}
	if err := query.Select("workflow_state, COUNT(*) as count").Group("workflow_state").Find(&grouped).Error; err != nil {
		return nil, 0, err
	}

	counts := map[models.WorkflowState]int64{
		models.StatePendingRegistration: 0,
		models.StateUnregistered:        0,
		models.StateRegistered:          0,
	}
	var total int64
	for _, g := range grouped {
		counts[models.WorkflowState(g.WorkflowState)] = g.Count
		total += g.Count
	}
	return counts, total, nil
}

// MarkRegistered transitions a review to REGISTERED and records which
// template was applied and when.
func (r *Repository) MarkRegistered(ctx context.Context, id, templateID int64) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&reviewModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"workflow_state":         string(models.StateRegistered),
			"registered_template_id": templateID,
			"registered_at":          now,
			"updated_at":             now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetState(ctx context.Context, id int64, state models.WorkflowState) error {
	result := r.db.WithContext(ctx).Model(&reviewModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"workflow_state": string(state),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toDomain(row reviewModel) models.CanonicalReview {
	return models.CanonicalReview{
		ID:                   row.ID,
		Platform:             models.Platform(row.Platform),
		PlatformNativeID:     row.PlatformNativeID,
		StoreID:              row.StoreID,
		CustomerName:         row.CustomerName,
		MenuName:             row.MenuName,
		Content:              row.Content,
		ReceivedAt:           row.ReceivedAt,
		WorkflowState:        models.WorkflowState(row.WorkflowState),
		RegisteredTemplateID: row.RegisteredTemplateID,
		RegisteredAt:         row.RegisteredAt,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
}
