package platform

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrAuthExpired},
		{http.StatusForbidden, ErrAuthExpired},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrTransientNetwork},
		{http.StatusBadGateway, ErrTransientNetwork},
		{http.StatusBadRequest, ErrPermanentRejection},
		{http.StatusUnprocessableEntity, ErrPermanentRejection},
	}
	for _, c := range cases {
		if got := classifyStatus(c.code); !errors.Is(got, c.want) {
			t.Errorf("status %d classified as %v, want %v", c.code, got, c.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(ErrRateLimited) || !Retryable(ErrTransientNetwork) {
		t.Fatal("rate limit and transient network failures must be retryable")
	}
	if Retryable(ErrAuthExpired) || Retryable(ErrPermanentRejection) || Retryable(ErrNotFound) {
		t.Fatal("auth, rejection and not-found failures must not be retryable")
	}
}

func TestRegistryResolve(t *testing.T) {
	mock := NewMockAdapter()
	r := NewRegistry(mock)

	got, err := r.Resolve(models.PlatformMock)
	if err != nil || got != mock {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, err := r.Resolve(models.PlatformBaemin); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestMockAdapterIsIdempotentOverARange(t *testing.T) {
	a := NewMockAdapter()
	rng := models.DateRange{
		From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 5, 3, 23, 59, 59, 0, time.UTC),
	}

	first, err := a.FetchReviews(context.Background(), Credentials{}, rng)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	second, err := a.FetchReviews(context.Background(), Credentials{}, rng)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("expected identical result sets, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].PlatformNativeID != second[i].PlatformNativeID {
			t.Fatalf("native id drifted between fetches: %q vs %q", first[i].PlatformNativeID, second[i].PlatformNativeID)
		}
		if !rng.Contains(first[i].ReceivedAt) {
			t.Fatalf("review %q outside requested range", first[i].PlatformNativeID)
		}
	}
}

func TestMockAdapterSimulatesFailures(t *testing.T) {
	a := NewMockAdapter()
	if err := a.PostReply(context.Background(), Credentials{Secret: "expired"}, "x", "hi"); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected auth expiry, got %v", err)
	}
	if err := a.PostReply(context.Background(), Credentials{Secret: "ratelimited"}, "x", "hi"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if err := a.PostReply(context.Background(), Credentials{}, "x", "hi"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
