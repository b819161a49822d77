package engine

import (
	"fmt"

	"github.com/sengol-ai/question-engine/internal/config"
	"github.com/sengol-ai/question-engine/internal/model"
)

// Formulas holds the per-type coefficient sets of the final weight formula.
// Coefficient validity (each set sums to 1.0) is enforced at config load.
type Formulas struct {
	risk       config.FormulaWeights
	compliance config.FormulaWeights
}

// NewFormulas builds the formula table from validated engine configuration.
func NewFormulas(cfg config.EngineConfig) Formulas {
	return Formulas{risk: cfg.Risk, compliance: cfg.Compliance}
}

// FinalWeight combines the three signals linearly using the coefficient set
// for the question type. Inputs are expected in [0,1] but are deliberately
// not clamped: an out-of-range input produces an out-of-range final weight
// that passes through the filters at its literal value, surfacing the
// upstream bug instead of masking it.
//
// An unknown question type is a programming error; the pipeline validates
// types before scoring, so this panics rather than returning an error.
func (f Formulas) FinalWeight(qt model.QuestionType, base, evidence, industry float64) float64 {
	var w config.FormulaWeights
	switch qt {
	case model.QuestionTypeRisk:
		w = f.risk
	case model.QuestionTypeCompliance:
		w = f.compliance
	default:
		panic(fmt.Sprintf("engine: no formula for question type %q", qt))
	}
	return base*w.Base + evidence*w.Evidence + industry*w.Industry
}
