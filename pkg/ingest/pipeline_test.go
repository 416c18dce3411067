package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/reviewpilot/platform/pkg/common/logger"
	"github.com/reviewpilot/platform/pkg/common/models"
	"github.com/reviewpilot/platform/pkg/connections"
	"github.com/reviewpilot/platform/pkg/platform"
)

func init() {
	logger.Init()
}

type memLedger struct {
	mu     sync.Mutex
	rows   map[string]*models.CanonicalReview
	nextID int64
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*models.CanonicalReview)}
}

func ledgerKey(p models.Platform, nativeID string) string {
	return string(p) + "|" + nativeID
}

func (l *memLedger) Upsert(ctx context.Context, p models.Platform, storeID int64, raw models.RawReview) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(p, raw.PlatformNativeID)
	if existing, ok := l.rows[key]; ok {
		existing.CustomerName = raw.CustomerName
		existing.MenuName = raw.MenuName
		existing.Content = raw.Content
		existing.ReceivedAt = raw.ReceivedAt
		return false, nil
	}

	l.nextID++
	l.rows[key] = &models.CanonicalReview{
		ID:               l.nextID,
		Platform:         p,
		PlatformNativeID: raw.PlatformNativeID,
		StoreID:          storeID,
		CustomerName:     raw.CustomerName,
		MenuName:         raw.MenuName,
		Content:          raw.Content,
		ReceivedAt:       raw.ReceivedAt,
		WorkflowState:    models.StatePendingRegistration,
	}
	return true, nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func (l *memLedger) get(p models.Platform, nativeID string) *models.CanonicalReview {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows[ledgerKey(p, nativeID)]
}

type memCreds struct {
	creds map[string]platform.Credentials
}

func credKey(storeID int64, p models.Platform) string {
	return fmt.Sprintf("%d:%s", storeID, p)
}

func (c *memCreds) ResolveCredentials(ctx context.Context, storeID int64, p models.Platform) (platform.Credentials, error) {
	creds, ok := c.creds[credKey(storeID, p)]
	if !ok {
		return platform.Credentials{}, connections.ErrNotFound
	}
	return creds, nil
}

type memStores struct {
	list []models.Store
}

func (s *memStores) List(ctx context.Context) ([]models.Store, error) {
	return s.list, nil
}

type fakeAdapter struct {
	plat     models.Platform
	reviews  []models.RawReview
	fetchErr error
}

func (a *fakeAdapter) Platform() models.Platform { return a.plat }

func (a *fakeAdapter) FetchReviews(ctx context.Context, creds platform.Credentials, rng models.DateRange) ([]models.RawReview, error) {
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	return a.reviews, nil
}

func (a *fakeAdapter) PostReply(ctx context.Context, creds platform.Credentials, nativeID, text string) error {
	return nil
}

type deniedLocker struct{}

func (deniedLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	return nil, false, nil
}

func rawReview(nativeID string) models.RawReview {
	return models.RawReview{
		PlatformNativeID: nativeID,
		CustomerName:     "고객",
		MenuName:         "치킨",
		Content:          "맛있어요",
		ReceivedAt:       time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func testRange() models.DateRange {
	return models.DateRange{
		From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestSyncIngestsAndDeduplicates(t *testing.T) {
	lgr := newMemLedger()
	adapter := &fakeAdapter{plat: models.PlatformMock, reviews: []models.RawReview{rawReview("R1"), rawReview("R2")}}
	creds := &memCreds{creds: map[string]platform.Credentials{
		credKey(1, models.PlatformMock): {LoginID: "a", Secret: "b"},
	}}

	p := NewPipeline(platform.NewRegistry(adapter), creds, lgr, &memStores{}, nil, nil, 2)

	report, err := p.Sync(context.Background(), 1, testRange())
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if report.Inserted != 2 || report.Updated != 0 {
		t.Fatalf("expected 2 inserts, got %+v", report)
	}
	if lgr.count() != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", lgr.count())
	}

	// Overlapping re-sync must refresh, never duplicate.
	report, err = p.Sync(context.Background(), 1, testRange())
	if err != nil {
		t.Fatalf("re-sync failed: %v", err)
	}
	if report.Inserted != 0 || report.Updated != 2 {
		t.Fatalf("expected 2 updates on re-sync, got %+v", report)
	}
	if lgr.count() != 2 {
		t.Fatalf("re-sync grew the ledger to %d rows", lgr.count())
	}

	rv := lgr.get(models.PlatformMock, "R1")
	if rv == nil || rv.WorkflowState != models.StatePendingRegistration {
		t.Fatalf("expected new review in PENDING_REGISTRATION, got %+v", rv)
	}
}

func TestSyncPreservesWorkflowState(t *testing.T) {
	lgr := newMemLedger()
	adapter := &fakeAdapter{plat: models.PlatformMock, reviews: []models.RawReview{rawReview("R1")}}
	creds := &memCreds{creds: map[string]platform.Credentials{
		credKey(1, models.PlatformMock): {},
	}}
	p := NewPipeline(platform.NewRegistry(adapter), creds, lgr, &memStores{}, nil, nil, 1)

	if _, err := p.Sync(context.Background(), 1, testRange()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	lgr.get(models.PlatformMock, "R1").WorkflowState = models.StateRegistered
	adapter.reviews[0].Content = "수정된 리뷰"

	if _, err := p.Sync(context.Background(), 1, testRange()); err != nil {
		t.Fatalf("re-sync failed: %v", err)
	}

	rv := lgr.get(models.PlatformMock, "R1")
	if rv.WorkflowState != models.StateRegistered {
		t.Fatalf("re-ingestion reset workflow state to %s", rv.WorkflowState)
	}
	if rv.Content != "수정된 리뷰" {
		t.Fatalf("expected content refresh, got %q", rv.Content)
	}
}

func TestSyncSkipsMissingConnection(t *testing.T) {
	lgr := newMemLedger()
	connected := &fakeAdapter{plat: models.PlatformBaemin, reviews: []models.RawReview{rawReview("B1")}}
	unconnected := &fakeAdapter{plat: models.PlatformYogiyo, reviews: []models.RawReview{rawReview("Y1")}}
	creds := &memCreds{creds: map[string]platform.Credentials{
		credKey(1, models.PlatformBaemin): {},
	}}

	p := NewPipeline(platform.NewRegistry(connected, unconnected), creds, lgr, &memStores{}, nil, nil, 2)
	report, err := p.Sync(context.Background(), 1, testRange())
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	byPlatform := map[models.Platform]models.PlatformSyncResult{}
	for _, res := range report.Platforms {
		byPlatform[res.Platform] = res
	}
	if !byPlatform[models.PlatformYogiyo].Skipped {
		t.Fatal("expected yogiyo to be skipped without a connection")
	}
	if byPlatform[models.PlatformBaemin].Inserted != 1 {
		t.Fatalf("expected baemin insert, got %+v", byPlatform[models.PlatformBaemin])
	}
	if lgr.count() != 1 {
		t.Fatalf("expected 1 ledger row, got %d", lgr.count())
	}
}

func TestSyncIsolatesPlatformFailure(t *testing.T) {
	lgr := newMemLedger()
	failing := &fakeAdapter{plat: models.PlatformBaemin, fetchErr: platform.ErrAuthExpired}
	healthy := &fakeAdapter{plat: models.PlatformYogiyo, reviews: []models.RawReview{rawReview("Y1")}}
	creds := &memCreds{creds: map[string]platform.Credentials{
		credKey(1, models.PlatformBaemin): {},
		credKey(1, models.PlatformYogiyo): {},
	}}

	p := NewPipeline(platform.NewRegistry(failing, healthy), creds, lgr, &memStores{}, nil, nil, 2)
	report, err := p.Sync(context.Background(), 1, testRange())
	if err != nil {
		t.Fatalf("sync must not fail because one platform failed: %v", err)
	}

	byPlatform := map[models.Platform]models.PlatformSyncResult{}
	for _, res := range report.Platforms {
		byPlatform[res.Platform] = res
	}
	if byPlatform[models.PlatformBaemin].Error == "" {
		t.Fatal("expected baemin failure to be recorded")
	}
	if byPlatform[models.PlatformYogiyo].Inserted != 1 {
		t.Fatalf("expected yogiyo to succeed, got %+v", byPlatform[models.PlatformYogiyo])
	}
}

func TestSyncRefusesWhenLockHeld(t *testing.T) {
	p := NewPipeline(platform.NewRegistry(), &memCreds{}, newMemLedger(), &memStores{}, deniedLocker{}, nil, 1)
	if _, err := p.Sync(context.Background(), 1, testRange()); err != ErrSyncInProgress {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestSyncAllCoversEveryStore(t *testing.T) {
	lgr := newMemLedger()
	adapter := &fakeAdapter{plat: models.PlatformMock, reviews: []models.RawReview{rawReview("R1")}}
	creds := &memCreds{creds: map[string]platform.Credentials{
		credKey(1, models.PlatformMock): {},
		credKey(2, models.PlatformMock): {},
	}}
	storeSrc := &memStores{list: []models.Store{{ID: 1}, {ID: 2}}}

	p := NewPipeline(platform.NewRegistry(adapter), creds, lgr, storeSrc, nil, nil, 1)
	reports, err := p.SyncAll(context.Background(), testRange())
	if err != nil {
		t.Fatalf("sync all failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
}
