package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
)

// YogiyoAdapter speaks the Yogiyo partner review API. Yogiyo uses epoch
// timestamps and header-token auth, unlike Baemin.
type YogiyoAdapter struct {
	baseURL string
	client  *http.Client
}

func NewYogiyoAdapter(cfg EndpointConfig) *YogiyoAdapter {
	return &YogiyoAdapter{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.timeout()},
	}
}

func (a *YogiyoAdapter) Platform() models.Platform {
	return models.PlatformYogiyo
}

type yogiyoReview struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	MenuSummary string `json:"menu_summary"`
	Comment     string `json:"comment"`
	Time        int64  `json:"time"`
}

type yogiyoReviewPage struct {
	Data []yogiyoReview `json:"data"`
}

func (a *YogiyoAdapter) authHeaders(creds Credentials) map[string]string {
	return map[string]string{
		"X-Partner-Id":  creds.LoginID,
		"X-Partner-Key": creds.Secret,
	}
}

func (a *YogiyoAdapter) FetchReviews(ctx context.Context, creds Credentials, rng models.DateRange) ([]models.RawReview, error) {
	q := url.Values{}
	q.Set("from", fmt.Sprintf("%d", rng.From.Unix()))
	q.Set("to", fmt.Sprintf("%d", rng.To.Unix()))

	var page yogiyoReviewPage
	endpoint := fmt.Sprintf("%s/api/v1/reviews?%s", a.baseURL, q.Encode())
	if err := getJSON(ctx, a.client, endpoint, a.authHeaders(creds), &page); err != nil {
		return nil, err
	}

	out := make([]models.RawReview, 0, len(page.Data))
	for _, rv := range page.Data {
		out = append(out, models.RawReview{
			PlatformNativeID: rv.ID,
			CustomerName:     rv.Nickname,
			MenuName:         rv.MenuSummary,
			Content:          rv.Comment,
			ReceivedAt:       time.Unix(rv.Time, 0).UTC(),
		})
	}
	return out, nil
}

func (a *YogiyoAdapter) PostReply(ctx context.Context, creds Credentials, nativeID, text string) error {
	endpoint := fmt.Sprintf("%s/api/v1/reviews/%s/reply", a.baseURL, url.PathEscape(nativeID))
	return postJSON(ctx, a.client, endpoint, a.authHeaders(creds), map[string]string{"reply": text})
}
