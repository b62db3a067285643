// Package encyclopedia looks up one-sentence species descriptions on the
// Korean Wikipedia. Lookups are best effort: every failure falls back to the
// title that was asked for, and nothing is retried.
package encyclopedia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ecopark-admin/internal/cache"
	"ecopark-admin/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	maxSummaryRunes = 200

	// Lead text of Korean Wikipedia disambiguation pages
	disambiguationMarker = "다음은 관련된 주제에 관한 문서입니다"
)

// Client fetches article summaries
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[string]
	cache      *cache.Cache
}

// NewClient creates a client for the MediaWiki API at endpoint. cache may be nil.
func NewClient(endpoint string, timeout time.Duration, c *cache.Cache) *Client {
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "encyclopedia",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		cache:      c,
	}
}

type queryResponse struct {
	Query struct {
		Pages map[string]struct {
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Summary returns the first sentence of the article titled title, or title
// itself when no usable article text is available
func (c *Client) Summary(ctx context.Context, title string) string {
	if title == "" {
		return title
	}

	load := func(ctx context.Context) (string, error) {
		return c.breaker.Execute(func() (string, error) {
			return c.fetchExtract(ctx, title)
		})
	}

	var (
		extract string
		err     error
	)
	if c.cache != nil {
		extract, err = cache.Fetch(ctx, c.cache, "wiki:"+title, load)
	} else {
		extract, err = load(ctx)
	}
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Encyclopedia lookup failed")
		metrics.EncyclopediaLookups.WithLabelValues("error").Inc()
		return title
	}

	summary, ok := FirstSentence(extract)
	if !ok {
		metrics.EncyclopediaLookups.WithLabelValues("fallback").Inc()
		return title
	}

	metrics.EncyclopediaLookups.WithLabelValues("found").Inc()
	return summary
}

func (c *Client) fetchExtract(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts")
	params.Set("exintro", "true")
	params.Set("explaintext", "true")
	params.Set("titles", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query encyclopedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("encyclopedia returned status %d", resp.StatusCode)
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode encyclopedia response: %w", err)
	}

	// The API answers with a single page keyed by page id ("-1" when missing)
	for _, page := range body.Query.Pages {
		return page.Extract, nil
	}
	return "", nil
}

// FirstSentence cuts an article extract down to its first sentence, capped
// at 200 characters. It reports false for empty or disambiguation extracts.
func FirstSentence(extract string) (string, bool) {
	if strings.TrimSpace(extract) == "" || strings.Contains(extract, disambiguationMarker) {
		return "", false
	}

	sentence, _, _ := strings.Cut(extract, ".")
	sentence += "."

	runes := []rune(sentence)
	if len(runes) > maxSummaryRunes {
		return string(runes[:maxSummaryRunes]) + "...", true
	}
	return sentence, true
}
