package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sengol-ai/question-engine/internal/model"
)

func writeRequestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRequestYAML(t *testing.T) {
	path := writeRequestFile(t, "batch.yaml", `
intensity: medium
risk:
  - id: r1
    question_type: risk
    priority: high
    base_weight: 0.8
    label: Third-party access review
    description: How often are vendor accounts audited?
compliance:
  - id: c1
    question_type: compliance
    priority: critical
    base_weight: 0.9
    label: Data retention policy
industry_weights:
  default: 0.5
  by_candidate:
    r1: 0.7
constraints:
  industry: finance
`)

	req, err := loadRequest(path)
	require.NoError(t, err)

	assert.Equal(t, "medium", req.Intensity)
	require.Len(t, req.Risk, 1)
	assert.Equal(t, "r1", req.Risk[0].ID)
	assert.Equal(t, model.QuestionTypeRisk, req.Risk[0].QuestionType)
	assert.Equal(t, model.PriorityHigh, req.Risk[0].Priority)
	assert.Equal(t, 0.8, req.Risk[0].BaseWeight)
	require.Len(t, req.Compliance, 1)
	assert.Equal(t, "c1", req.Compliance[0].ID)
	assert.Equal(t, 0.5, req.IndustryWeights.Default)
	assert.Equal(t, 0.7, req.IndustryWeights.ByCandidate["r1"])
	assert.Equal(t, "finance", req.Constraints.Industry)
}

func TestLoadRequestJSON(t *testing.T) {
	path := writeRequestFile(t, "batch.json", `{
  "intensity": "high",
  "risk": [{"id": "r1", "question_type": "risk", "priority": "medium", "base_weight": 0.6, "label": "Backup drills"}],
  "industry_weights": {"default": 0.4}
}`)

	req, err := loadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "high", req.Intensity)
	require.Len(t, req.Risk, 1)
	assert.Equal(t, "Backup drills", req.Risk[0].Label)
	assert.Equal(t, 0.4, req.IndustryWeights.Default)
}

func TestLoadRequestErrors(t *testing.T) {
	_, err := loadRequest("")
	require.Error(t, err)

	_, err = loadRequest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := writeRequestFile(t, "bad.json", "{not json")
	_, err = loadRequest(bad)
	require.Error(t, err)
}
