//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiclamp/leadscout/internal/config"
)

// pipelineTestConfig is a minimal config that passes Validate("find")
// with enrichment off.
func pipelineTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(t.TempDir(), "leads.db"),
		},
		Score: config.ScoreConfig{Age: 30, Size: 25, BusinessType: 20, Website: 10, Contact: 15},
		AI:    config.AIConfig{Enabled: false, Workers: 4},
	}
}

func TestInitPipeline(t *testing.T) {
	cfg = pipelineTestConfig(t)

	env, err := initPipeline(context.Background(), "find")
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, []string{"yellowpages", "googlemaps"}, env.Registry.Names())
	assert.Nil(t, env.Enricher)
	assert.NotNil(t, env.Scorer)
	assert.NotNil(t, env.Store)
}

func TestInitPipeline_RegistersFeedWhenConfigured(t *testing.T) {
	cfg = pipelineTestConfig(t)
	cfg.Sources.FeedURL = "https://data.example.com/buildings.csv"

	env, err := initPipeline(context.Background(), "find")
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, []string{"yellowpages", "googlemaps", "feed"}, env.Registry.Names())
}

func TestInitPipeline_RejectsInvalidConfig(t *testing.T) {
	cfg = pipelineTestConfig(t)
	cfg.Score.Contact = 0 // sum is 85 now

	env, err := initPipeline(context.Background(), "find")
	assert.Nil(t, env)
	assert.Error(t, err)
}

func TestInitScorer_FromComponents(t *testing.T) {
	cfg = pipelineTestConfig(t)

	scorer, err := initScorer()
	require.NoError(t, err)
	assert.NotNil(t, scorer)
}

func TestInitScorer_RejectsBadSum(t *testing.T) {
	cfg = pipelineTestConfig(t)
	cfg.Score.Age = 50 // sum is 120 now

	_, err := initScorer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
}

func TestInitScorer_WeightsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("age: 40\nsize: 15\n"), 0o644))

	cfg = pipelineTestConfig(t)
	cfg.Score.WeightsFile = path

	scorer, err := initScorer()
	require.NoError(t, err)
	assert.NotNil(t, scorer)
}

func TestInitScorer_MissingWeightsFile(t *testing.T) {
	cfg = pipelineTestConfig(t)
	cfg.Score.WeightsFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := initScorer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load score weights")
}

func TestInitEnricher(t *testing.T) {
	cfg = pipelineTestConfig(t)
	assert.Nil(t, initEnricher(false), "disabled ai yields no enricher")

	cfg.AI.Enabled = true
	assert.Nil(t, initEnricher(false), "enabled but unkeyed yields no enricher")

	cfg.AI.Key = "sk-ant-test"
	assert.NotNil(t, initEnricher(false))
	assert.NotNil(t, initEnricher(true))
}
