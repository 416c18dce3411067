package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
)

// MockAdapter simulates a platform for local development. Reviews are
// generated deterministically from the date range so repeated fetches map to
// the same canonical identities.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (a *MockAdapter) Platform() models.Platform {
	return models.PlatformMock
}

var (
	mockMenus    = []string{"치킨", "피자", "떡볶이", ""}
	mockContents = []string{"맛있어요", "보통이에요", "다음엔 더 빨리 주세요"}
)

func (a *MockAdapter) FetchReviews(ctx context.Context, creds Credentials, rng models.DateRange) ([]models.RawReview, error) {
	if creds.Secret == "expired" {
		return nil, ErrAuthExpired
	}

	var out []models.RawReview
	for day := rng.From.Truncate(24 * time.Hour); !day.After(rng.To); day = day.Add(24 * time.Hour) {
		for i := 0; i < 3; i++ {
			receivedAt := day.Add(time.Duration(i+9) * time.Hour)
			if !rng.Contains(receivedAt) {
				continue
			}
			seq := day.YearDay()*10 + i
			out = append(out, models.RawReview{
				PlatformNativeID: fmt.Sprintf("mock-%s-%d", day.Format("20060102"), i),
				CustomerName:     fmt.Sprintf("고객%d", seq),
				MenuName:         mockMenus[seq%len(mockMenus)],
				Content:          mockContents[seq%len(mockContents)],
				ReceivedAt:       receivedAt,
			})
		}
	}
	return out, nil
}

func (a *MockAdapter) PostReply(ctx context.Context, creds Credentials, nativeID, text string) error {
	switch creds.Secret {
	case "expired":
		return ErrAuthExpired
	case "ratelimited":
		return ErrRateLimited
	case "rejected":
		return ErrPermanentRejection
	}
	return nil
}
