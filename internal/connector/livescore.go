package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/models"
)

// ReconnectConfig controls stream reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns sensible stream reconnect defaults
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Minute,
		BackoffMultiplier: 2.0,
	}
}

// scoreMessage is the wire format of the live score stream
type scoreMessage struct {
	Op            string `json:"op"`
	FixtureID     string `json:"fixture_id,omitempty"`
	HomeGoals     int    `json:"home_goals,omitempty"`
	AwayGoals     int    `json:"away_goals,omitempty"`
	MinutesPlayed int    `json:"minutes_played,omitempty"`
	Period        string `json:"period,omitempty"`
	HomeRedCards  int    `json:"home_red_cards,omitempty"`
	AwayRedCards  int    `json:"away_red_cards,omitempty"`
	Heartbeat     bool   `json:"heartbeat,omitempty"`
}

// LiveScoreConnector consumes the in-play score stream over a websocket.
// A reader goroutine keeps the latest state per fixture; Poll drains that
// state into SourceRecords, so a slow stream never blocks the orchestrator.
type LiveScoreConnector struct {
	streamURL       string
	apiKey          string
	cadence         time.Duration
	stalenessWindow time.Duration
	degradedAfter   int
	reconnect       ReconnectConfig
	logger          *logrus.Logger

	mu                  sync.RWMutex
	conn                *websocket.Conn
	connected           bool
	latest              map[uuid.UUID]models.LiveScorePayload
	updatedAt           map[uuid.UUID]time.Time
	lastMessageAt       time.Time
	lastSuccessAt       time.Time
	consecutiveFailures int
	cancel              context.CancelFunc
}

// NewLiveScoreConnector creates the live score streaming connector
func NewLiveScoreConnector(opts Options, reconnect ReconnectConfig, logger *logrus.Logger) *LiveScoreConnector {
	return &LiveScoreConnector{
		streamURL:       opts.BaseURL,
		apiKey:          opts.APIKey,
		cadence:         opts.Cadence,
		stalenessWindow: opts.StalenessWindow,
		degradedAfter:   opts.DegradedAfter,
		reconnect:       reconnect,
		logger:          logger,
		latest:          make(map[uuid.UUID]models.LiveScorePayload),
		updatedAt:       make(map[uuid.UUID]time.Time),
	}
}

// Start opens the stream and launches the reader goroutine
func (c *LiveScoreConnector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.connect(runCtx); err != nil {
		cancel()
		return err
	}

	go c.readLoop(runCtx)
	return nil
}

// Stop closes the stream
func (c *LiveScoreConnector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connected = false
}

func (c *LiveScoreConnector) connect(ctx context.Context) error {
	header := map[string][]string{}
	if c.apiKey != "" {
		header["Authorization"] = []string{"Bearer " + c.apiKey}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.streamURL, header)
	if err != nil {
		c.recordFailure()
		return NewConnectorError(models.SourceLiveScores, ErrCodeNetworkError, "failed to dial score stream", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastMessageAt = time.Now().UTC()
	c.mu.Unlock()

	c.logger.WithField("url", c.streamURL).Info("Connected to live score stream")
	return nil
}

// readLoop consumes stream messages, reconnecting with exponential backoff
func (c *LiveScoreConnector) readLoop(ctx context.Context) {
	backoff := c.reconnect.InitialBackoff
	retries := 0

	for {
		if ctx.Err() != nil {
			return
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()

			if ctx.Err() != nil {
				return
			}

			retries++
			if c.reconnect.MaxRetries > 0 && retries > c.reconnect.MaxRetries {
				c.logger.WithError(err).Error("Live score stream gave up reconnecting")
				c.recordFailure()
				return
			}

			c.logger.WithError(err).WithField("backoff", backoff).Warn("Live score stream disconnected, reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * c.reconnect.BackoffMultiplier)
			if backoff > c.reconnect.MaxBackoff {
				backoff = c.reconnect.MaxBackoff
			}

			if err := c.connect(ctx); err != nil {
				continue
			}
			continue
		}

		retries = 0
		backoff = c.reconnect.InitialBackoff

		if err := c.handleMessage(data); err != nil {
			c.logger.WithError(err).Debug("Skipping malformed stream message")
		}
	}
}

func (c *LiveScoreConnector) handleMessage(data []byte) error {
	var msg scoreMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to decode stream message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMessageAt = time.Now().UTC()

	if msg.Heartbeat || msg.Op != "score" {
		return nil
	}

	fixtureID, err := uuid.Parse(msg.FixtureID)
	if err != nil {
		return fmt.Errorf("invalid fixture id %q in stream: %w", msg.FixtureID, err)
	}

	c.latest[fixtureID] = models.LiveScorePayload{
		HomeGoals:     msg.HomeGoals,
		AwayGoals:     msg.AwayGoals,
		MinutesPlayed: msg.MinutesPlayed,
		Period:        msg.Period,
		HomeRedCards:  msg.HomeRedCards,
		AwayRedCards:  msg.AwayRedCards,
	}
	c.updatedAt[fixtureID] = c.lastMessageAt
	return nil
}

// Poll implements Connector by draining buffered stream state
func (c *LiveScoreConnector) Poll(ctx context.Context, sel FixtureSelector) ([]models.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected && len(c.latest) == 0 {
		c.consecutiveFailures++
		return nil, NewConnectorError(models.SourceLiveScores, ErrCodeStreamClosed,
			"stream not connected and no buffered state", ErrStreamClosed)
	}

	wanted := map[uuid.UUID]bool{}
	for _, id := range sel.FixtureIDs {
		wanted[id] = true
	}

	records := make([]models.SourceRecord, 0, len(c.latest))
	for fixtureID, payload := range c.latest {
		if len(wanted) > 0 && !wanted[fixtureID] {
			continue
		}
		records = append(records, models.SourceRecord{
			ID:              uuid.New(),
			Source:          models.SourceLiveScores,
			FixtureID:       fixtureID,
			CapturedAt:      c.updatedAt[fixtureID],
			StalenessWindow: c.stalenessWindow,
			Payload:         payload,
		})
	}

	c.lastSuccessAt = time.Now().UTC()
	c.consecutiveFailures = 0
	return records, nil
}

// Health implements Connector
func (c *LiveScoreConnector) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := StatusHealthy
	if c.lastSuccessAt.IsZero() {
		status = StatusDown
	}
	if c.consecutiveFailures >= c.degradedAfter || (!c.connected && !c.lastSuccessAt.IsZero()) {
		status = StatusDegraded
	}

	return Health{
		Status:              status,
		LastSuccessAt:       c.lastSuccessAt,
		ConsecutiveFailures: c.consecutiveFailures,
	}
}

// Kind implements Connector
func (c *LiveScoreConnector) Kind() models.SourceKind { return models.SourceLiveScores }

// Cadence implements Connector
func (c *LiveScoreConnector) Cadence() time.Duration { return c.cadence }

// StalenessWindow implements Connector
func (c *LiveScoreConnector) StalenessWindow() time.Duration { return c.stalenessWindow }

func (c *LiveScoreConnector) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures++
}
