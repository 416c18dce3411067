package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reviewpilot/platform/pkg/common/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// CoupangEatsAdapter speaks the Coupang Eats merchant API, which issues
// short-lived bearer tokens via a client-credentials exchange. The connection
// login acts as the client id and the secret as the client secret.
type CoupangEatsAdapter struct {
	baseURL  string
	tokenURL string
	timeout  time.Duration
}

func NewCoupangEatsAdapter(cfg EndpointConfig) *CoupangEatsAdapter {
	return &CoupangEatsAdapter{
		baseURL:  cfg.BaseURL,
		tokenURL: cfg.TokenURL,
		timeout:  cfg.timeout(),
	}
}

func (a *CoupangEatsAdapter) Platform() models.Platform {
	return models.PlatformCoupangEats
}

func (a *CoupangEatsAdapter) httpClient(ctx context.Context, creds Credentials) *http.Client {
	conf := &clientcredentials.Config{
		ClientID:     creds.LoginID,
		ClientSecret: creds.Secret,
		TokenURL:     a.tokenURL,
	}
	base := &http.Client{Timeout: a.timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return conf.Client(ctx)
}

// tokenError unwraps oauth2 retrieval failures into the adapter taxonomy. A
// rejected exchange means the stored credential is no longer valid.
func tokenError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		if retrieve.Response != nil && retrieve.Response.StatusCode >= 500 {
			return fmt.Errorf("token exchange: %w", ErrTransientNetwork)
		}
		return fmt.Errorf("token exchange: %w", ErrAuthExpired)
	}
	return err
}

type coupangReview struct {
	OrderReviewID string `json:"orderReviewId"`
	CustomerName  string `json:"customerName"`
	OrderedMenu   string `json:"orderedMenu"`
	Review        string `json:"review"`
	ReviewedAt    string `json:"reviewedAt"`
}

type coupangReviewPage struct {
	Data struct {
		Reviews []coupangReview `json:"reviews"`
	} `json:"data"`
}

func (a *CoupangEatsAdapter) FetchReviews(ctx context.Context, creds Credentials, rng models.DateRange) ([]models.RawReview, error) {
	q := url.Values{}
	q.Set("startDate", rng.From.Format("2006-01-02"))
	q.Set("endDate", rng.To.Format("2006-01-02"))

	var page coupangReviewPage
	endpoint := fmt.Sprintf("%s/v1/merchant/reviews?%s", a.baseURL, q.Encode())
	if err := getJSON(ctx, a.httpClient(ctx, creds), endpoint, nil, &page); err != nil {
		return nil, tokenError(err)
	}

	out := make([]models.RawReview, 0, len(page.Data.Reviews))
	for _, rv := range page.Data.Reviews {
		receivedAt, err := time.Parse(time.RFC3339, rv.ReviewedAt)
		if err != nil {
			continue
		}
		out = append(out, models.RawReview{
			PlatformNativeID: rv.OrderReviewID,
			CustomerName:     rv.CustomerName,
			MenuName:         rv.OrderedMenu,
			Content:          rv.Review,
			ReceivedAt:       receivedAt,
		})
	}
	return out, nil
}

func (a *CoupangEatsAdapter) PostReply(ctx context.Context, creds Credentials, nativeID, text string) error {
	endpoint := fmt.Sprintf("%s/v1/merchant/reviews/%s/reply", a.baseURL, url.PathEscape(nativeID))
	if err := postJSON(ctx, a.httpClient(ctx, creds), endpoint, nil, map[string]string{"reply": text}); err != nil {
		return tokenError(err)
	}
	return nil
}
