package platform

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
)

// BaeminAdapter speaks the Baemin CEO review API.
type BaeminAdapter struct {
	baseURL string
	client  *http.Client
}

func NewBaeminAdapter(cfg EndpointConfig) *BaeminAdapter {
	return &BaeminAdapter{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.timeout()},
	}
}

func (a *BaeminAdapter) Platform() models.Platform {
	return models.PlatformBaemin
}

type baeminReview struct {
	ReviewID   string `json:"reviewId"`
	MemberName string `json:"memberName"`
	MenuName   string `json:"menuName"`
	Contents   string `json:"contents"`
	CreatedAt  string `json:"createdAt"`
}

type baeminReviewPage struct {
	Reviews []baeminReview `json:"reviews"`
}

func (a *BaeminAdapter) authHeaders(creds Credentials) map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(creds.LoginID + ":" + creds.Secret))
	return map[string]string{"Authorization": "Basic " + token}
}

func (a *BaeminAdapter) FetchReviews(ctx context.Context, creds Credentials, rng models.DateRange) ([]models.RawReview, error) {
	q := url.Values{}
	q.Set("startDate", rng.From.Format("2006-01-02"))
	q.Set("endDate", rng.To.Format("2006-01-02"))

	var page baeminReviewPage
	endpoint := fmt.Sprintf("%s/v1/reviews?%s", a.baseURL, q.Encode())
	if err := getJSON(ctx, a.client, endpoint, a.authHeaders(creds), &page); err != nil {
		return nil, err
	}

	out := make([]models.RawReview, 0, len(page.Reviews))
	for _, rv := range page.Reviews {
		receivedAt, err := time.Parse(time.RFC3339, rv.CreatedAt)
		if err != nil {
			// Skip rows the platform serialized badly rather than failing the page.
			continue
		}
		out = append(out, models.RawReview{
			PlatformNativeID: rv.ReviewID,
			CustomerName:     rv.MemberName,
			MenuName:         rv.MenuName,
			Content:          rv.Contents,
			ReceivedAt:       receivedAt,
		})
	}
	return out, nil
}

func (a *BaeminAdapter) PostReply(ctx context.Context, creds Credentials, nativeID, text string) error {
	endpoint := fmt.Sprintf("%s/v1/reviews/%s/comments", a.baseURL, url.PathEscape(nativeID))
	return postJSON(ctx, a.client, endpoint, a.authHeaders(creds), map[string]string{"contents": text})
}
