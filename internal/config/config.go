package config

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sengol-ai/question-engine/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Qdrant QdrantConfig `yaml:"qdrant" mapstructure:"qdrant"`
	Jina   JinaConfig   `yaml:"jina" mapstructure:"jina"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// EngineConfig holds every tunable of the generation engine. Loaded once at
// startup, validated fatally, and treated as immutable afterwards.
type EngineConfig struct {
	Risk       FormulaWeights  `yaml:"risk" mapstructure:"risk"`
	Compliance FormulaWeights  `yaml:"compliance" mapstructure:"compliance"`
	PreFilter  PreFilterConfig `yaml:"pre_filter" mapstructure:"pre_filter"`
	Intensity  IntensityTable  `yaml:"intensity" mapstructure:"intensity"`
	Retrieval  RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
}

// FormulaWeights are the per-type coefficients of the final weight formula.
// They must sum to 1.0 so the final weight stays in [0,1] for in-range inputs.
type FormulaWeights struct {
	Base     float64 `yaml:"base" mapstructure:"base"`
	Evidence float64 `yaml:"evidence" mapstructure:"evidence"`
	Industry float64 `yaml:"industry" mapstructure:"industry"`
}

// Sum returns the total of the three coefficients.
func (w FormulaWeights) Sum() float64 {
	return w.Base + w.Evidence + w.Industry
}

// PreFilterConfig is the intensity-independent quality floor.
type PreFilterConfig struct {
	MinWeight        float64 `yaml:"min_weight" mapstructure:"min_weight"`
	MinIncidentCount int     `yaml:"min_incident_count" mapstructure:"min_incident_count"`
	MinSimilarity    float64 `yaml:"min_similarity" mapstructure:"min_similarity"`
}

// IntensityLevel fixes how permissive filtering is at one requested intensity.
type IntensityLevel struct {
	MinWeight    float64  `yaml:"min_weight" mapstructure:"min_weight"`
	Priorities   []string `yaml:"priorities" mapstructure:"priorities"`
	MaxQuestions int      `yaml:"max_questions" mapstructure:"max_questions"`
}

// AllowsPriority reports whether p is in the level's allowed set.
func (l IntensityLevel) AllowsPriority(p model.Priority) bool {
	for _, allowed := range l.Priorities {
		if model.Priority(allowed) == p {
			return true
		}
	}
	return false
}

// IntensityTable holds the three named intensity levels.
type IntensityTable struct {
	High   IntensityLevel `yaml:"high" mapstructure:"high"`
	Medium IntensityLevel `yaml:"medium" mapstructure:"medium"`
	Low    IntensityLevel `yaml:"low" mapstructure:"low"`
}

// Level resolves an intensity name. Unknown names are a per-request input
// error for the caller, not a config error.
func (t IntensityTable) Level(name string) (IntensityLevel, bool) {
	switch name {
	case "high":
		return t.High, true
	case "medium":
		return t.Medium, true
	case "low":
		return t.Low, true
	}
	return IntensityLevel{}, false
}

// RetrievalConfig tunes the evidence fetch against the vector corpus.
type RetrievalConfig struct {
	IncidentsPerQuestion int `yaml:"incidents_per_question" mapstructure:"incidents_per_question"`
	FetchMultiplier      int `yaml:"fetch_multiplier" mapstructure:"fetch_multiplier"`
	MaxEvidenceIncidents int `yaml:"max_evidence_incidents" mapstructure:"max_evidence_incidents"`
	MaxConcurrent        int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// QdrantConfig holds the vector store connection settings.
type QdrantConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Collection  string  `yaml:"collection" mapstructure:"collection"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// JinaConfig holds the embeddings API settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// CacheConfig configures the evidence-query cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SENGOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Risk questions weight evidence higher: the incident corpus is the
	// stronger signal for risk. Compliance obligations are prescriptive and
	// lean on the base assessment instead.
	v.SetDefault("engine.risk.base", 0.5)
	v.SetDefault("engine.risk.evidence", 0.3)
	v.SetDefault("engine.risk.industry", 0.2)
	v.SetDefault("engine.compliance.base", 0.6)
	v.SetDefault("engine.compliance.evidence", 0.25)
	v.SetDefault("engine.compliance.industry", 0.15)

	v.SetDefault("engine.pre_filter.min_weight", 0.3)
	v.SetDefault("engine.pre_filter.min_incident_count", 1)
	v.SetDefault("engine.pre_filter.min_similarity", 0.5)

	v.SetDefault("engine.intensity.high.min_weight", 0.0)
	v.SetDefault("engine.intensity.high.priorities", []string{"critical", "high", "medium", "low"})
	v.SetDefault("engine.intensity.high.max_questions", 25)
	v.SetDefault("engine.intensity.medium.min_weight", 0.4)
	v.SetDefault("engine.intensity.medium.priorities", []string{"critical", "high", "medium"})
	v.SetDefault("engine.intensity.medium.max_questions", 15)
	v.SetDefault("engine.intensity.low.min_weight", 0.6)
	v.SetDefault("engine.intensity.low.priorities", []string{"critical", "high"})
	v.SetDefault("engine.intensity.low.max_questions", 8)

	v.SetDefault("engine.retrieval.incidents_per_question", 20)
	v.SetDefault("engine.retrieval.fetch_multiplier", 3)
	v.SetDefault("engine.retrieval.max_evidence_incidents", 15)
	v.SetDefault("engine.retrieval.max_concurrent", 8)

	v.SetDefault("qdrant.base_url", "http://localhost:6333")
	v.SetDefault("qdrant.collection", "sengol_incidents_full")
	v.SetDefault("qdrant.timeout_secs", 30)
	v.SetDefault("qdrant.rate_per_sec", 20)

	v.SetDefault("jina.base_url", "https://api.jina.ai")
	v.SetDefault("jina.model", "jina-embeddings-v3")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "evidence-cache.db")
	v.SetDefault("cache.ttl_hours", 24)

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// coefTolerance absorbs float representation noise in the sum check.
const coefTolerance = 0.001

// Validate enforces the startup invariants of the engine configuration.
// A violation here aborts the process rather than surfacing per-request.
func (c EngineConfig) Validate() error {
	if math.Abs(c.Risk.Sum()-1.0) > coefTolerance {
		return eris.Errorf("config: risk formula coefficients sum to %.4f, must sum to 1.0", c.Risk.Sum())
	}
	if math.Abs(c.Compliance.Sum()-1.0) > coefTolerance {
		return eris.Errorf("config: compliance formula coefficients sum to %.4f, must sum to 1.0", c.Compliance.Sum())
	}
	for name, w := range map[string]FormulaWeights{"risk": c.Risk, "compliance": c.Compliance} {
		if w.Base < 0 || w.Evidence < 0 || w.Industry < 0 {
			return eris.Errorf("config: %s formula has a negative coefficient", name)
		}
	}

	if c.PreFilter.MinWeight < 0 {
		return eris.New("config: pre_filter.min_weight is negative")
	}
	if c.PreFilter.MinIncidentCount < 0 {
		return eris.New("config: pre_filter.min_incident_count is negative")
	}
	if c.PreFilter.MinSimilarity < 0 || c.PreFilter.MinSimilarity > 1 {
		return eris.Errorf("config: pre_filter.min_similarity %.2f outside [0,1]", c.PreFilter.MinSimilarity)
	}

	levels := map[string]IntensityLevel{"high": c.Intensity.High, "medium": c.Intensity.Medium, "low": c.Intensity.Low}
	for name, l := range levels {
		if l.MinWeight < 0 {
			return eris.Errorf("config: intensity.%s.min_weight is negative", name)
		}
		if l.MaxQuestions < 0 {
			return eris.Errorf("config: intensity.%s.max_questions is negative", name)
		}
		for _, p := range l.Priorities {
			if !model.Priority(p).Valid() {
				return eris.Errorf("config: intensity.%s has unknown priority %q", name, p)
			}
		}
	}

	// Monotonic ladder: low is the strictest level, high the most permissive.
	if c.Intensity.Low.MinWeight < c.Intensity.Medium.MinWeight ||
		c.Intensity.Medium.MinWeight < c.Intensity.High.MinWeight {
		return eris.New("config: intensity min_weight must not decrease from high to low")
	}
	if c.Intensity.Low.MaxQuestions > c.Intensity.Medium.MaxQuestions ||
		c.Intensity.Medium.MaxQuestions > c.Intensity.High.MaxQuestions {
		return eris.New("config: intensity max_questions must not increase from high to low")
	}
	if !prioritySubset(c.Intensity.Low.Priorities, c.Intensity.Medium.Priorities) ||
		!prioritySubset(c.Intensity.Medium.Priorities, c.Intensity.High.Priorities) {
		return eris.New("config: intensity priorities must nest low within medium within high")
	}

	if c.Retrieval.IncidentsPerQuestion <= 0 {
		return eris.New("config: retrieval.incidents_per_question must be positive")
	}
	if c.Retrieval.FetchMultiplier <= 0 {
		return eris.New("config: retrieval.fetch_multiplier must be positive")
	}
	if c.Retrieval.MaxEvidenceIncidents <= 0 {
		return eris.New("config: retrieval.max_evidence_incidents must be positive")
	}
	if c.Retrieval.MaxConcurrent <= 0 {
		return eris.New("config: retrieval.max_concurrent must be positive")
	}

	return nil
}

func prioritySubset(sub, super []string) bool {
	for _, s := range sub {
		found := false
		for _, p := range super {
			if s == p {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
