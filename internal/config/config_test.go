package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sengol-ai/question-engine/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.Engine.Risk.Base, 0.001)
	assert.InDelta(t, 0.3, cfg.Engine.Risk.Evidence, 0.001)
	assert.InDelta(t, 0.2, cfg.Engine.Risk.Industry, 0.001)
	assert.InDelta(t, 0.6, cfg.Engine.Compliance.Base, 0.001)
	assert.InDelta(t, 0.25, cfg.Engine.Compliance.Evidence, 0.001)
	assert.InDelta(t, 0.15, cfg.Engine.Compliance.Industry, 0.001)

	assert.InDelta(t, 0.3, cfg.Engine.PreFilter.MinWeight, 0.001)
	assert.Equal(t, 1, cfg.Engine.PreFilter.MinIncidentCount)
	assert.InDelta(t, 0.5, cfg.Engine.PreFilter.MinSimilarity, 0.001)

	assert.Equal(t, 25, cfg.Engine.Intensity.High.MaxQuestions)
	assert.Equal(t, 15, cfg.Engine.Intensity.Medium.MaxQuestions)
	assert.Equal(t, 8, cfg.Engine.Intensity.Low.MaxQuestions)

	assert.Equal(t, 20, cfg.Engine.Retrieval.IncidentsPerQuestion)
	assert.Equal(t, 3, cfg.Engine.Retrieval.FetchMultiplier)
	assert.Equal(t, 15, cfg.Engine.Retrieval.MaxEvidenceIncidents)
	assert.Equal(t, 8, cfg.Engine.Retrieval.MaxConcurrent)

	assert.Equal(t, "sengol_incidents_full", cfg.Qdrant.Collection)
	assert.Equal(t, "https://api.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
engine:
  pre_filter:
    min_weight: 0.35
  retrieval:
    max_concurrent: 4
qdrant:
  collection: incidents_test
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.35, cfg.Engine.PreFilter.MinWeight, 0.001)
	assert.Equal(t, 4, cfg.Engine.Retrieval.MaxConcurrent)
	assert.Equal(t, "incidents_test", cfg.Qdrant.Collection)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched defaults survive a partial file.
	assert.Equal(t, 20, cfg.Engine.Retrieval.IncidentsPerQuestion)
}

func TestLoad_RejectsBadCoefficients(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
engine:
  risk:
    base: 0.5
    evidence: 0.5
    industry: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk formula coefficients")
}

func defaultEngine(t *testing.T) EngineConfig {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg.Engine
}

func TestValidate_DefaultsPass(t *testing.T) {
	assert.NoError(t, defaultEngine(t).Validate())
}

func TestValidate_CoefficientSum(t *testing.T) {
	e := defaultEngine(t)
	e.Compliance.Base = 0.9
	err := e.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compliance formula coefficients")
}

func TestValidate_NegativeIntensityWeight(t *testing.T) {
	e := defaultEngine(t)
	e.Intensity.Medium.MinWeight = -0.1
	require.Error(t, e.Validate())
}

func TestValidate_NegativeMaxQuestions(t *testing.T) {
	e := defaultEngine(t)
	e.Intensity.Low.MaxQuestions = -1
	require.Error(t, e.Validate())
}

func TestValidate_LadderMinWeight(t *testing.T) {
	e := defaultEngine(t)
	// Low must be at least as strict as medium.
	e.Intensity.Low.MinWeight = 0.2
	err := e.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_weight")
}

func TestValidate_LadderMaxQuestions(t *testing.T) {
	e := defaultEngine(t)
	e.Intensity.Low.MaxQuestions = 100
	err := e.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_questions")
}

func TestValidate_LadderPriorities(t *testing.T) {
	e := defaultEngine(t)
	e.Intensity.Low.Priorities = []string{"critical", "low"}
	err := e.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priorities")
}

func TestValidate_UnknownPriority(t *testing.T) {
	e := defaultEngine(t)
	e.Intensity.High.Priorities = append(e.Intensity.High.Priorities, "urgent")
	err := e.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown priority")
}

func TestIntensityTable_Level(t *testing.T) {
	e := defaultEngine(t)

	l, ok := e.Intensity.Level("medium")
	require.True(t, ok)
	assert.InDelta(t, 0.4, l.MinWeight, 0.001)

	_, ok = e.Intensity.Level("extreme")
	assert.False(t, ok)
	_, ok = e.Intensity.Level("")
	assert.False(t, ok)
}

func TestIntensityLevel_AllowsPriority(t *testing.T) {
	l := IntensityLevel{Priorities: []string{"critical", "high", "medium"}}
	assert.True(t, l.AllowsPriority(model.PriorityCritical))
	assert.True(t, l.AllowsPriority(model.PriorityMedium))
	assert.False(t, l.AllowsPriority(model.PriorityLow))
}
