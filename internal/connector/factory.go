package connector

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/models"
)

// Factory creates Connector implementations based on configuration
type Factory struct {
	logger        *logrus.Logger
	degradedAfter int
}

// NewFactory creates a new connector factory
func NewFactory(degradedAfter int, logger *logrus.Logger) *Factory {
	return &Factory{
		logger:        logger,
		degradedAfter: degradedAfter,
	}
}

// New creates a single connector from its configuration
func (f *Factory) New(cfg config.ConnectorConfig, client *RateLimitedHTTPClient) (Connector, error) {
	opts := Options{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		Cadence:         cfg.PollInterval(),
		StalenessWindow: cfg.StalenessWindow(),
		DegradedAfter:   f.degradedAfter,
	}

	switch models.SourceKind(cfg.Kind) {
	case models.SourceLiveScores:
		return NewLiveScoreConnector(opts, DefaultReconnectConfig(), f.logger), nil
	case models.SourceExchangeOdds:
		return NewExchangeOddsConnector(opts, client, f.logger), nil
	case models.SourceClosingLine:
		return NewClosingLineConnector(opts, client, f.logger), nil
	case models.SourceXG:
		return NewXGConnector(opts, client, f.logger), nil
	case models.SourceRatings:
		return NewRatingsConnector(opts, client, f.logger), nil
	case models.SourceStandings:
		return NewStandingsConnector(opts, client, f.logger), nil
	case models.SourceValuations:
		return NewValuationsConnector(opts, client, f.logger), nil
	case models.SourceHistoricalOdds:
		return NewHistoricalOddsConnector(opts, client, f.logger), nil
	default:
		return nil, fmt.Errorf("unknown connector kind: %s", cfg.Kind)
	}
}

// NewConnectors creates all enabled connectors from configuration
func (f *Factory) NewConnectors(cfg config.ConnectorsConfig, client *RateLimitedHTTPClient) ([]Connector, error) {
	var connectors []Connector

	for _, srcCfg := range cfg.Sources {
		if !srcCfg.Enabled {
			f.logger.WithField("kind", srcCfg.Kind).Info("Skipping disabled connector")
			continue
		}

		conn, err := f.New(srcCfg, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create connector %s: %w", srcCfg.Kind, err)
		}

		connectors = append(connectors, conn)
		f.logger.WithField("kind", srcCfg.Kind).Info("Created connector")
	}

	if len(connectors) == 0 {
		return nil, fmt.Errorf("no enabled connectors configured")
	}

	return connectors, nil
}
