package engine

import (
	"github.com/sengol-ai/question-engine/internal/config"
	"github.com/sengol-ai/question-engine/internal/model"
)

// PassesPreFilter is the intensity-independent quality floor: minimum final
// weight and minimum supporting incident count. It applies identically to
// risk and compliance candidates.
func PassesPreFilter(pf config.PreFilterConfig, finalWeight float64, incidentCount int) bool {
	return finalWeight >= pf.MinWeight && incidentCount >= pf.MinIncidentCount
}

// PassesIntensity narrows the pre-filtered pool to the requested intensity:
// the candidate's final weight must clear the level's floor and its priority
// must be in the level's allowed set.
func PassesIntensity(level config.IntensityLevel, finalWeight float64, priority model.Priority) bool {
	return finalWeight >= level.MinWeight && level.AllowsPriority(priority)
}
