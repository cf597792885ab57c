package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/models"
)

// parseFunc converts a raw API response into normalized source records
type parseFunc func(body []byte, sel FixtureSelector, capturedAt time.Time) ([]models.SourceRecord, error)

// restConnector is the shared implementation behind every HTTP-polled source.
// Each kind supplies an endpoint path and parser; cadence, staleness, auth and
// health tracking are common.
type restConnector struct {
	kind            models.SourceKind
	baseURL         string
	endpoint        string
	apiKey          string
	cadence         time.Duration
	stalenessWindow time.Duration
	client          *RateLimitedHTTPClient
	parse           parseFunc
	logger          *logrus.Logger

	mu                  sync.RWMutex
	lastSuccessAt       time.Time
	consecutiveFailures int
	degradedAfter       int
}

func newRESTConnector(
	kind models.SourceKind,
	baseURL, endpoint, apiKey string,
	cadence, staleness time.Duration,
	degradedAfter int,
	client *RateLimitedHTTPClient,
	parse parseFunc,
	logger *logrus.Logger,
) *restConnector {
	return &restConnector{
		kind:            kind,
		baseURL:         baseURL,
		endpoint:        endpoint,
		apiKey:          apiKey,
		cadence:         cadence,
		stalenessWindow: staleness,
		degradedAfter:   degradedAfter,
		client:          client,
		parse:           parse,
		logger:          logger,
	}
}

// Kind implements Connector
func (c *restConnector) Kind() models.SourceKind { return c.kind }

// Cadence implements Connector
func (c *restConnector) Cadence() time.Duration { return c.cadence }

// StalenessWindow implements Connector
func (c *restConnector) StalenessWindow() time.Duration { return c.stalenessWindow }

// Health implements Connector
func (c *restConnector) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := StatusHealthy
	if c.lastSuccessAt.IsZero() {
		status = StatusDown
	}
	if c.consecutiveFailures >= c.degradedAfter {
		status = StatusDegraded
	}

	return Health{
		Status:              status,
		LastSuccessAt:       c.lastSuccessAt,
		ConsecutiveFailures: c.consecutiveFailures,
	}
}

// Poll implements Connector
func (c *restConnector) Poll(ctx context.Context, sel FixtureSelector) ([]models.SourceRecord, error) {
	reqURL, err := c.buildURL(sel)
	if err != nil {
		return nil, NewConnectorError(c.kind, ErrCodeInvalidData, "failed to build poll URL", err)
	}

	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	body, status, err := c.client.Get(ctx, reqURL, headers)
	if err != nil {
		c.recordFailure()
		return nil, NewConnectorError(c.kind, ErrCodeNetworkError, "poll request failed", err)
	}

	if status != http.StatusOK {
		c.recordFailure()
		return nil, c.statusError(status)
	}

	capturedAt := time.Now().UTC()
	records, err := c.parse(body, sel, capturedAt)
	if err != nil {
		c.recordFailure()
		return nil, NewConnectorError(c.kind, ErrCodeInvalidData, "failed to parse response", err)
	}

	for i := range records {
		records[i].Source = c.kind
		records[i].StalenessWindow = c.stalenessWindow
	}

	c.recordSuccess()
	return records, nil
}

func (c *restConnector) buildURL(sel FixtureSelector) (string, error) {
	u, err := url.Parse(c.baseURL + c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if sel.League != "" {
		q.Set("league", sel.League)
	}
	if !sel.From.IsZero() {
		q.Set("from", sel.From.UTC().Format(time.RFC3339))
	}
	if !sel.To.IsZero() {
		q.Set("to", sel.To.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *restConnector) statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewConnectorError(c.kind, ErrCodeAuthenticationFailed,
			fmt.Sprintf("unexpected status %d", status), ErrAuthenticationFailed)
	case status == http.StatusTooManyRequests:
		return NewConnectorError(c.kind, ErrCodeRateLimitExceeded,
			fmt.Sprintf("unexpected status %d", status), ErrRateLimitExceeded)
	case status == http.StatusNotFound:
		return NewConnectorError(c.kind, ErrCodeNotFound,
			fmt.Sprintf("unexpected status %d", status), ErrNotFound)
	case status >= 500:
		return NewConnectorError(c.kind, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d", status), ErrNetworkError)
	default:
		return NewConnectorError(c.kind, ErrCodeInvalidData,
			fmt.Sprintf("unexpected status %d", status), ErrInvalidData)
	}
}

func (c *restConnector) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSuccessAt = time.Now().UTC()
	c.consecutiveFailures = 0
}

func (c *restConnector) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures++
}
