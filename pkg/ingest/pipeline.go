package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reviewpilot/platform/pkg/common/logger"
	"github.com/reviewpilot/platform/pkg/common/models"
	"github.com/reviewpilot/platform/pkg/connections"
	"github.com/reviewpilot/platform/pkg/platform"
)

var ErrSyncInProgress = errors.New("sync already in progress for store")

// Ledger is the write surface the pipeline reconciles into.
type Ledger interface {
	Upsert(ctx context.Context, p models.Platform, storeID int64, raw models.RawReview) (inserted bool, err error)
}

// CredentialSource resolves decrypted credentials for an adapter call. A
// connections.ErrNotFound result means "skip this store/platform".
type CredentialSource interface {
	ResolveCredentials(ctx context.Context, storeID int64, p models.Platform) (platform.Credentials, error)
}

type StoreSource interface {
	List(ctx context.Context) ([]models.Store, error)
}

// Publisher is the optional outcome event stream.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

// Pipeline pulls reviews from every connected platform of a store and
// reconciles them into the ledger. Platform failures are isolated: one
// platform failing never aborts the others.
type Pipeline struct {
	registry  *platform.Registry
	creds     CredentialSource
	ledger    Ledger
	stores    StoreSource
	locker    Locker
	publisher Publisher
	workers   int
}

func NewPipeline(registry *platform.Registry, creds CredentialSource, ledger Ledger, stores StoreSource, locker Locker, publisher Publisher, workers int) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		registry:  registry,
		creds:     creds,
		ledger:    ledger,
		stores:    stores,
		locker:    locker,
		publisher: publisher,
		workers:   workers,
	}
}

// Sync pulls the date range for one store across all registered platforms,
// bounded to the configured worker count. Missing connections are skipped,
// adapter failures are captured per platform, and re-ingestion of already
// known reviews refreshes display fields only.
func (p *Pipeline) Sync(ctx context.Context, storeID int64, rng models.DateRange) (*models.SyncReport, error) {
	if p.locker != nil {
		release, ok, err := p.locker.Acquire(ctx, fmt.Sprintf("sync:store:%d", storeID))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSyncInProgress
		}
		defer release()
	}

	report := &models.SyncReport{
		ID:        uuid.New().String(),
		StoreID:   storeID,
		StartedAt: time.Now().UTC(),
	}

	platforms := p.registry.Platforms()
	results := make([]models.PlatformSyncResult, len(platforms))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)

	for i, plat := range platforms {
		// Cancellation stops scheduling of not-yet-started platforms; units
		// already running finish their committed writes.
		if ctx.Err() != nil {
			results[i] = models.PlatformSyncResult{Platform: plat, Skipped: true, Error: ctx.Err().Error()}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, plat models.Platform) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = p.syncPlatform(ctx, storeID, plat, rng)
		}(i, plat)
	}
	wg.Wait()

	for _, res := range results {
		report.Fetched += res.Fetched
		report.Inserted += res.Inserted
		report.Updated += res.Updated
	}
	report.Platforms = results
	report.FinishedAt = time.Now().UTC()

	if p.publisher != nil {
		data := map[string]interface{}{
			"sync_id":  report.ID,
			"store_id": storeID,
			"fetched":  report.Fetched,
			"inserted": report.Inserted,
			"updated":  report.Updated,
		}
		if err := p.publisher.PublishEvent(ctx, models.EventReviewsSynced, "ingest", data); err != nil {
			logger.Log.WithError(err).Warn("failed to publish sync event")
		}
	}

	return report, nil
}

func (p *Pipeline) syncPlatform(ctx context.Context, storeID int64, plat models.Platform, rng models.DateRange) models.PlatformSyncResult {
	result := models.PlatformSyncResult{Platform: plat}

	creds, err := p.creds.ResolveCredentials(ctx, storeID, plat)
	if err != nil {
		if errors.Is(err, connections.ErrNotFound) {
			logger.Log.WithFields(map[string]interface{}{
				"store_id": storeID,
				"platform": plat,
			}).Debug("no connection, skipping platform")
			result.Skipped = true
			return result
		}
		result.Error = err.Error()
		return result
	}

	adapter, err := p.registry.Resolve(plat)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	raws, err := adapter.FetchReviews(ctx, creds, rng)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"store_id": storeID,
			"platform": plat,
		}).Warn("fetch failed")
		result.Error = err.Error()
		return result
	}
	result.Fetched = len(raws)

	for _, raw := range raws {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			return result
		}
		inserted, err := p.ledger.Upsert(ctx, plat, storeID, raw)
		if err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"platform":  plat,
				"native_id": raw.PlatformNativeID,
			}).Error("ledger upsert failed")
			result.Error = err.Error()
			return result
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	return result
}

// SyncAll runs Sync for every store, used by the manual trigger endpoint and
// the scheduler. Stores already mid-sync are skipped, not failed.
func (p *Pipeline) SyncAll(ctx context.Context, rng models.DateRange) ([]models.SyncReport, error) {
	storeList, err := p.stores.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}

	reports := make([]models.SyncReport, 0, len(storeList))
	for _, store := range storeList {
		if ctx.Err() != nil {
			break
		}
		report, err := p.Sync(ctx, store.ID, rng)
		if err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				logger.Log.WithField("store_id", store.ID).Info("store sync already running, skipping")
				continue
			}
			return reports, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
