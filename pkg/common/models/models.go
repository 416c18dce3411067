package models

import (
	"time"
)

// Platform identifies the delivery platform a review or connection belongs to.
type Platform string

const (
	PlatformBaemin      Platform = "baemin"
	PlatformYogiyo      Platform = "yogiyo"
	PlatformCoupangEats Platform = "coupangeats"
	PlatformMock        Platform = "mock"
)

// WorkflowState is the reply workflow position of a canonical review. "ALL" is
// a query filter, never a stored value.
type WorkflowState string

const (
	StatePendingRegistration WorkflowState = "PENDING_REGISTRATION"
	StateUnregistered        WorkflowState = "UNREGISTERED"
	StateRegistered          WorkflowState = "REGISTERED"
)

func (s WorkflowState) Valid() bool {
	switch s {
	case StatePendingRegistration, StateUnregistered, StateRegistered:
		return true
	}
	return false
}

type Store struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Connection is the non-secret view of a platform credential. The encrypted
// secret never leaves the connections package.
type Connection struct {
	ID        int64     `json:"id"`
	StoreID   int64     `json:"store_id"`
	Platform  Platform  `json:"platform"`
	LoginID   string    `json:"login_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CanonicalReview is the reconciled unit of work. (Platform, PlatformNativeID)
// is unique across the ledger.
type CanonicalReview struct {
	ID                   int64         `json:"id"`
	Platform             Platform      `json:"platform"`
	PlatformNativeID     string        `json:"platform_native_id"`
	StoreID              int64         `json:"store_id"`
	CustomerName         string        `json:"customer_name"`
	MenuName             string        `json:"menu_name"`
	Content              string        `json:"content"`
	ReceivedAt           time.Time     `json:"received_at"`
	WorkflowState        WorkflowState `json:"workflow_state"`
	RegisteredTemplateID *int64        `json:"registered_template_id,omitempty"`
	RegisteredAt         *time.Time    `json:"registered_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

type ReplyTemplate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RawReview is what a platform adapter returns before reconciliation.
type RawReview struct {
	PlatformNativeID string    `json:"platform_native_id"`
	CustomerName     string    `json:"customer_name"`
	MenuName         string    `json:"menu_name"`
	Content          string    `json:"content"`
	ReceivedAt       time.Time `json:"received_at"`
}

// DateRange is inclusive on both ends.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// PlatformSyncResult reports one platform's slice of a sync run.
type PlatformSyncResult struct {
	Platform Platform `json:"platform"`
	Fetched  int      `json:"fetched"`
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  bool     `json:"skipped"`
	Error    string   `json:"error,omitempty"`
}

type SyncReport struct {
	ID         string               `json:"id"`
	StoreID    int64                `json:"store_id"`
	Platforms  []PlatformSyncResult `json:"platforms"`
	Fetched    int                  `json:"fetched"`
	Inserted   int                  `json:"inserted"`
	Updated    int                  `json:"updated"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// DispatchOutcome classifies one review's result within a bulk dispatch.
type DispatchOutcome string

const (
	OutcomeRegistered      DispatchOutcome = "REGISTERED"
	OutcomeFailedRetryable DispatchOutcome = "FAILED_RETRYABLE"
	OutcomeFailedPermanent DispatchOutcome = "FAILED_PERMANENT"
	OutcomeReviewNotFound  DispatchOutcome = "REVIEW_NOT_FOUND"
	OutcomeNoConnection    DispatchOutcome = "NO_CONNECTION"
)

type DispatchItemResult struct {
	ReviewID int64           `json:"review_id"`
	Outcome  DispatchOutcome `json:"outcome"`
	Reason   string          `json:"reason,omitempty"`
}

type DispatchSummary struct {
	Registered      int `json:"registered"`
	FailedRetryable int `json:"failed_retryable"`
	FailedPermanent int `json:"failed_permanent"`
	NotFound        int `json:"not_found"`
	NoConnection    int `json:"no_connection"`
}

// BulkDispatchResult accounts for every requested review id exactly once.
type BulkDispatchResult struct {
	BatchID    string               `json:"batch_id"`
	TemplateID int64                `json:"template_id"`
	Items      []DispatchItemResult `json:"items"`
	Summary    DispatchSummary      `json:"summary"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Event is the outcome-stream envelope published to Kafka.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	EventReviewsSynced = "reviews.synced"
	EventReplyPosted   = "reply.posted"
	EventReplyFailed   = "reply.failed"
)
