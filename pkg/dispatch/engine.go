package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reviewpilot/platform/pkg/common/logger"
	"github.com/reviewpilot/platform/pkg/common/models"
	"github.com/reviewpilot/platform/pkg/connections"
	"github.com/reviewpilot/platform/pkg/ledger"
	"github.com/reviewpilot/platform/pkg/platform"
	"github.com/reviewpilot/platform/pkg/replies"
	"github.com/reviewpilot/platform/pkg/templates"
)

// Ledger is the review state surface the engine reads and transitions.
type Ledger interface {
	Get(ctx context.Context, id int64) (models.CanonicalReview, error)
	MarkRegistered(ctx context.Context, id, templateID int64) error
	SetState(ctx context.Context, id int64, state models.WorkflowState) error
}

type TemplateSource interface {
	Get(ctx context.Context, id int64) (models.ReplyTemplate, error)
}

type CredentialSource interface {
	ResolveCredentials(ctx context.Context, storeID int64, p models.Platform) (platform.Credentials, error)
}

type StoreSource interface {
	Get(ctx context.Context, id int64) (models.Store, error)
}

// Audit persists one row per dispatch attempt.
type Audit interface {
	Create(ctx context.Context, rec *replies.Record) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

// Engine fans one reply template out to many reviews. Each review is
// processed independently: per-item failures are recorded in the result, and
// a committed transition is never rolled back because a later item failed.
type Engine struct {
	registry  *platform.Registry
	ledger    Ledger
	templates TemplateSource
	creds     CredentialSource
	stores    StoreSource
	audit     Audit
	publisher Publisher
	workers   int
}

func NewEngine(registry *platform.Registry, lgr Ledger, tmpl TemplateSource, creds CredentialSource, stores StoreSource, audit Audit, publisher Publisher, workers int) *Engine {
	if workers <= 0 {
		workers = 8
	}
	return &Engine{
		registry:  registry,
		ledger:    lgr,
		templates: tmpl,
		creds:     creds,
		stores:    stores,
		audit:     audit,
		publisher: publisher,
		workers:   workers,
	}
}

// Dispatch posts the rendered template to every requested review. An unknown
// template rejects the whole call before any side effect; everything after
// that is per-item. Duplicate ids are collapsed so each review gets at most
// one attempt per call.
func (e *Engine) Dispatch(ctx context.Context, reviewIDs []int64, templateID int64) (*models.BulkDispatchResult, error) {
	tmpl, err := e.templates.Get(ctx, templateID)
	if err != nil {
		if errors.Is(err, templates.ErrTemplateNotFound) {
			return nil, templates.ErrTemplateNotFound
		}
		return nil, err
	}

	ids := dedupe(reviewIDs)
	result := &models.BulkDispatchResult{
		BatchID:    uuid.New().String(),
		TemplateID: templateID,
		Items:      make([]models.DispatchItemResult, len(ids)),
		StartedAt:  time.Now().UTC(),
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)

	for i, id := range ids {
		// Cancellation stops scheduling; items already posted stay committed.
		if ctx.Err() != nil {
			result.Items[i] = models.DispatchItemResult{
				ReviewID: id,
				Outcome:  models.OutcomeFailedRetryable,
				Reason:   ctx.Err().Error(),
			}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, reviewID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			result.Items[idx] = e.dispatchOne(ctx, result.BatchID, reviewID, tmpl)
		}(i, id)
	}
	wg.Wait()

	for _, item := range result.Items {
		switch item.Outcome {
		case models.OutcomeRegistered:
			result.Summary.Registered++
		case models.OutcomeFailedRetryable:
			result.Summary.FailedRetryable++
		case models.OutcomeFailedPermanent:
			result.Summary.FailedPermanent++
		case models.OutcomeReviewNotFound:
			result.Summary.NotFound++
		case models.OutcomeNoConnection:
			result.Summary.NoConnection++
		}
	}
	result.FinishedAt = time.Now().UTC()
	return result, nil
}

func (e *Engine) dispatchOne(ctx context.Context, batchID string, reviewID int64, tmpl models.ReplyTemplate) models.DispatchItemResult {
	item := models.DispatchItemResult{ReviewID: reviewID}

	review, err := e.ledger.Get(ctx, reviewID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			item.Outcome = models.OutcomeReviewNotFound
			return item
		}
		item.Outcome = models.OutcomeFailedRetryable
		item.Reason = err.Error()
		return item
	}

	creds, err := e.creds.ResolveCredentials(ctx, review.StoreID, review.Platform)
	if err != nil {
		if errors.Is(err, connections.ErrNotFound) {
			// The one automatic transition into UNREGISTERED: automated
			// posting cannot proceed until the operator reconnects.
			if err := e.ledger.SetState(ctx, reviewID, models.StateUnregistered); err != nil {
				logger.Log.WithError(err).WithField("review_id", reviewID).Error("failed to mark review unregistered")
			}
			item.Outcome = models.OutcomeNoConnection
			return item
		}
		item.Outcome = models.OutcomeFailedRetryable
		item.Reason = err.Error()
		return item
	}

	storeName := ""
	if store, err := e.stores.Get(ctx, review.StoreID); err == nil {
		storeName = store.Name
	}

	substitution := map[string]string{
		templates.KeyStoreName:    storeName,
		templates.KeyPlatform:     string(review.Platform),
		templates.KeyCustomerName: review.CustomerName,
		templates.KeyMenuName:     review.MenuName,
	}
	rendered := templates.Render(tmpl.Body, substitution)

	adapter, err := e.registry.Resolve(review.Platform)
	if err != nil {
		item.Outcome = models.OutcomeFailedPermanent
		item.Reason = err.Error()
		e.record(ctx, batchID, review, tmpl, rendered, substitution, err)
		return item
	}

	postErr := adapter.PostReply(ctx, creds, review.PlatformNativeID, rendered)
	e.record(ctx, batchID, review, tmpl, rendered, substitution, postErr)

	if postErr == nil {
		if err := e.ledger.MarkRegistered(ctx, reviewID, tmpl.ID); err != nil {
			item.Outcome = models.OutcomeFailedRetryable
			item.Reason = err.Error()
			return item
		}
		item.Outcome = models.OutcomeRegistered
		e.publish(ctx, models.EventReplyPosted, review, tmpl, "")
		return item
	}

	// Failed posts leave the review in PENDING_REGISTRATION for operator
	// action or an external retry schedule.
	item.Reason = postErr.Error()
	if platform.Retryable(postErr) {
		item.Outcome = models.OutcomeFailedRetryable
	} else {
		item.Outcome = models.OutcomeFailedPermanent
	}
	e.publish(ctx, models.EventReplyFailed, review, tmpl, postErr.Error())
	return item
}

func (e *Engine) record(ctx context.Context, batchID string, review models.CanonicalReview, tmpl models.ReplyTemplate, rendered string, substitution map[string]string, postErr error) {
	if e.audit == nil {
		return
	}

	rec := &replies.Record{
		BatchID:    batchID,
		ReviewID:   review.ID,
		TemplateID: tmpl.ID,
		Content:    rendered,
		Status:     replies.StatusPosted,
		Context:    map[string]interface{}{},
	}
	for k, v := range substitution {
		rec.Context[k] = v
	}
	if postErr != nil {
		rec.Status = replies.StatusFailed
		rec.FailReason = postErr.Error()
	}

	if err := e.audit.Create(ctx, rec); err != nil {
		logger.Log.WithError(err).WithField("review_id", review.ID).Error("failed to persist reply record")
	}
}

func (e *Engine) publish(ctx context.Context, eventType string, review models.CanonicalReview, tmpl models.ReplyTemplate, reason string) {
	if e.publisher == nil {
		return
	}
	data := map[string]interface{}{
		"review_id":   review.ID,
		"platform":    string(review.Platform),
		"template_id": tmpl.ID,
	}
	if reason != "" {
		data["reason"] = reason
	}
	if err := e.publisher.PublishEvent(ctx, eventType, "dispatch", data); err != nil {
		logger.Log.WithError(err).Warn("failed to publish dispatch event")
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
