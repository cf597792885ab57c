// Package connector implements the closed set of external data source connectors.
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/footy-edge/internal/models"
)

// HealthStatus is the operational state of a connector
type HealthStatus string

const (
	// StatusHealthy means recent polls succeeded
	StatusHealthy HealthStatus = "healthy"
	// StatusDegraded means failures crossed the degradation threshold;
	// consumers treat the source's feature group as absent
	StatusDegraded HealthStatus = "degraded"
	// StatusDown means the connector has never succeeded
	StatusDown HealthStatus = "down"
)

// Health reports a connector's operational state
type Health struct {
	Status              HealthStatus `json:"status"`
	LastSuccessAt       time.Time    `json:"last_success_at"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
}

// FixtureSelector narrows a poll to the fixtures of interest
type FixtureSelector struct {
	League     string
	From       time.Time
	To         time.Time
	FixtureIDs []uuid.UUID
}

// Connector is the capability interface every source kind implements.
// Implementations declare their own polling cadence and staleness window.
type Connector interface {
	// Poll fetches the latest records for the selected fixtures
	Poll(ctx context.Context, sel FixtureSelector) ([]models.SourceRecord, error)

	// Health reports the connector's current operational state
	Health() Health

	// Kind returns the connector's source kind
	Kind() models.SourceKind

	// Cadence returns the connector's polling interval
	Cadence() time.Duration

	// StalenessWindow returns how long this source's records stay usable
	StalenessWindow() time.Duration
}

// ConnectorError represents errors from connector operations
type ConnectorError struct {
	Source  models.SourceKind // Source kind
	Code    string            // Error code (e.g. "rate_limit_exceeded")
	Message string            // Error message
	Err     error             // Underlying error
}

func (e ConnectorError) Error() string {
	if e.Err != nil {
		return string(e.Source) + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return string(e.Source) + ": " + e.Code + ": " + e.Message
}

func (e ConnectorError) Unwrap() error { return e.Err }

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeStreamClosed         = "stream_closed"
)

// Sentinel errors
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrStreamClosed         = errors.New("stream closed")
)

// NewConnectorError creates a new connector error
func NewConnectorError(source models.SourceKind, code, message string, err error) ConnectorError {
	return ConnectorError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsTransient reports whether the error should be retried with backoff
func IsTransient(err error) bool {
	var ce ConnectorError
	if errors.As(err, &ce) {
		switch ce.Code {
		case ErrCodeNetworkError, ErrCodeServerError, ErrCodeRateLimitExceeded, ErrCodeStreamClosed:
			return true
		}
		return false
	}
	// Unclassified failures are assumed transient so one bad parse
	// does not permanently degrade a source.
	return true
}
