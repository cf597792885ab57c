package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/models"
)

func sourceConfig(kind string) config.ConnectorConfig {
	return config.ConnectorConfig{
		Kind:                   kind,
		Enabled:                true,
		BaseURL:                "http://localhost:9999",
		PollIntervalSeconds:    30,
		StalenessWindowSeconds: 300,
	}
}

func TestFactoryCreatesEveryKind(t *testing.T) {
	f := NewFactory(3, testLogger())
	client := testHTTPClient()

	for _, kind := range models.AllSourceKinds {
		c, err := f.New(sourceConfig(string(kind)), client)
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, kind, c.Kind())
		assert.Equal(t, 30*time.Second, c.Cadence())
		assert.Equal(t, 5*time.Minute, c.StalenessWindow())
	}
}

func TestFactoryRejectsUnknownKind(t *testing.T) {
	f := NewFactory(3, testLogger())
	_, err := f.New(sourceConfig("tennis_scores"), testHTTPClient())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown connector kind")
}

func TestNewConnectorsSkipsDisabled(t *testing.T) {
	f := NewFactory(3, testLogger())

	disabled := sourceConfig(string(models.SourceXG))
	disabled.Enabled = false

	cfg := config.ConnectorsConfig{
		Sources: []config.ConnectorConfig{
			sourceConfig(string(models.SourceRatings)),
			disabled,
			sourceConfig(string(models.SourceStandings)),
		},
	}

	connectors, err := f.NewConnectors(cfg, testHTTPClient())
	require.NoError(t, err)
	require.Len(t, connectors, 2)

	kinds := []models.SourceKind{connectors[0].Kind(), connectors[1].Kind()}
	assert.ElementsMatch(t, []models.SourceKind{models.SourceRatings, models.SourceStandings}, kinds)
}

func TestNewConnectorsRequiresAtLeastOne(t *testing.T) {
	f := NewFactory(3, testLogger())

	disabled := sourceConfig(string(models.SourceXG))
	disabled.Enabled = false

	_, err := f.NewConnectors(config.ConnectorsConfig{
		Sources: []config.ConnectorConfig{disabled},
	}, testHTTPClient())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no enabled connectors")
}
