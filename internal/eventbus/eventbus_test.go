package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDisabledWithNoBrokers(t *testing.T) {
	cfg := FromEnv("", "")
	require.False(t, cfg.Enabled, "publisher should be disabled with no brokers configured")
}

func TestFromEnvParsesBrokersAndDefaultsTopic(t *testing.T) {
	cfg := FromEnv(" broker1:9092, broker2:9092 ", "")
	require.True(t, cfg.Enabled)
	require.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Brokers)
	require.Equal(t, "ingestion-scenario-status", cfg.Topic)
}

func TestDisabledPublisherStartAndPublishAreNoOps(t *testing.T) {
	p := New(Config{Enabled: false}, nil)
	require.NoError(t, p.Start(context.Background()))
	p.Publish(Event{ScenarioID: "sc1", Status: "DOWNLOADING", Done: 50})
	p.Stop()
}
