package domain

import "time"

// Config holds the complete FraudGuard configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Tier determines backing services
	Tier Tier `json:"tier" yaml:"tier"`

	// Decision thresholds, frozen after startup
	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" yaml:"repository"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" yaml:"event_bus"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`

	// Observability
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// Thresholds is the read-only decision configuration: amount tiers, the
// late-night window, confidence floors and per-category safety caps.
// Initialized once at startup and passed by reference into the engine.
type Thresholds struct {
	// Amount tiers
	ExtremeAmount  float64 `json:"extremeAmount" yaml:"extreme_amount"`
	VeryHighAmount float64 `json:"veryHighAmount" yaml:"very_high_amount"`
	HighAmount     float64 `json:"highAmount" yaml:"high_amount"`
	MediumAmount   float64 `json:"mediumAmount" yaml:"medium_amount"`
	LowAmount      float64 `json:"lowAmount" yaml:"low_amount"`
	TrivialAmount  float64 `json:"trivialAmount" yaml:"trivial_amount"`

	// Late-night window: hour < LateNightEnd or hour > EveningStart
	LateNightEnd int `json:"lateNightEnd" yaml:"late_night_end"`
	EveningStart int `json:"eveningStart" yaml:"evening_start"`

	// Confidence floors for forced fraud
	FraudConfidenceHigh   float64 `json:"fraudConfidenceHigh" yaml:"fraud_confidence_high"`
	FraudConfidenceMedium float64 `json:"fraudConfidenceMedium" yaml:"fraud_confidence_medium"`
	FraudConfidenceLow    float64 `json:"fraudConfidenceLow" yaml:"fraud_confidence_low"`

	// Category safety caps
	HealthcareMaxSafe float64 `json:"healthcareMaxSafe" yaml:"healthcare_max_safe"`
	TransportMaxSafe  float64 `json:"transportMaxSafe" yaml:"transport_max_safe"`
	FoodMaxSafe       float64 `json:"foodMaxSafe" yaml:"food_max_safe"`
	BillsMaxSafe      float64 `json:"billsMaxSafe" yaml:"bills_max_safe"`

	// Ceiling on safe verdicts below the trivial amount
	TrivialSafeCeiling float64 `json:"trivialSafeCeiling" yaml:"trivial_safe_ceiling"`

	// Prior substituted when the classifier is unavailable
	NeutralPrior float64 `json:"neutralPrior" yaml:"neutral_prior"`
}

// IsLateNight reports whether an hour falls inside the configured
// late-night/late-evening window.
func (t Thresholds) IsLateNight(hour int) bool {
	return hour < t.LateNightEnd || hour > t.EveningStart
}

// DefaultThresholds returns the shipped decision thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExtremeAmount:  200000,
		VeryHighAmount: 100000,
		HighAmount:     50000,
		MediumAmount:   25000,
		LowAmount:      10000,
		TrivialAmount:  1000,

		LateNightEnd: 5,
		EveningStart: 22,

		FraudConfidenceHigh:   0.85,
		FraudConfidenceMedium: 0.75,
		FraudConfidenceLow:    0.60,

		HealthcareMaxSafe: 100000,
		TransportMaxSafe:  5000,
		FoodMaxSafe:       3000,
		BillsMaxSafe:      50000,

		TrivialSafeCeiling: 0.1,
		NeutralPrior:       0.3,
	}
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"readTimeout" yaml:"read_timeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" yaml:"write_timeout"` // seconds
}

// ClassifierConfig holds the frozen-model adapter settings.
type ClassifierConfig struct {
	// ModelPath is the JSON weight file produced by offline training.
	// Empty or unreadable means the adapter reports unavailable and the
	// engine runs on the neutral prior.
	ModelPath string `json:"modelPath" yaml:"model_path"`

	// Circuit breaker settings around inference
	BreakerMaxFailures int `json:"breakerMaxFailures" yaml:"breaker_max_failures"`
	BreakerOpenSecs    int `json:"breakerOpenSecs" yaml:"breaker_open_secs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName" yaml:"service_name"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-memory cache + channel bus
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + Redis + NATS
	TierPro Tier = "pro"
)

// DefaultConfig returns the Community tier defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier:       TierCommunity,
		Thresholds: DefaultThresholds(),
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./fraudguard.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			DecisionTTL:  10 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Classifier: ClassifierConfig{
			ModelPath:          "./model.json",
			BreakerMaxFailures: 5,
			BreakerOpenSecs:    30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "fraudguard",
		},
	}
}

// ProConfig returns the Pro tier defaults.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "fraudguard",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		DecisionTTL:    10 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
