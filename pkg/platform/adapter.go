package platform

import (
	"context"
	"errors"

	"github.com/reviewpilot/platform/pkg/common/models"
)

// Adapter failure taxonomy. Ingestion and dispatch classify per-item outcomes
// by matching against these with errors.Is.
var (
	ErrAuthExpired        = errors.New("platform authentication expired")
	ErrNotFound           = errors.New("not found on platform")
	ErrRateLimited        = errors.New("platform rate limited")
	ErrTransientNetwork   = errors.New("transient network error")
	ErrPermanentRejection = errors.New("platform rejected the request")

	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Retryable reports whether a failed adapter call may succeed on a later
// attempt. Retrying is a scheduling concern outside this package.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransientNetwork)
}

// Credentials carry a connection's decrypted login for one adapter call.
type Credentials struct {
	LoginID string
	Secret  string
}

// Adapter is the per-platform capability interface. Implementations isolate
// all platform-specific transport and parsing; the rest of the system depends
// only on this contract.
//
// FetchReviews must be idempotent: two calls with the same range map to the
// same canonical identities. PostReply failures must unwrap to one of the
// taxonomy errors above.
type Adapter interface {
	Platform() models.Platform
	FetchReviews(ctx context.Context, creds Credentials, rng models.DateRange) ([]models.RawReview, error)
	PostReply(ctx context.Context, creds Credentials, nativeID, text string) error
}

// Registry resolves the adapter variant for a platform. Adding a platform is
// a new variant plus a Register call, never an edit to ingestion or dispatch.
type Registry struct {
	adapters map[models.Platform]Adapter
	order    []models.Platform
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	p := a.Platform()
	if _, exists := r.adapters[p]; !exists {
		r.order = append(r.order, p)
	}
	r.adapters[p] = a
}

func (r *Registry) Resolve(p models.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, ErrUnsupportedPlatform
	}
	return a, nil
}

// Platforms returns registered platforms in registration order.
func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, len(r.order))
	copy(out, r.order)
	return out
}
