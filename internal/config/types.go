package config

import "time"

// Config is the full protocold configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Bandit    BanditConfig    `koanf:"bandit"`
	Reward    RewardConfig    `koanf:"reward"`
	Improver  ImproverConfig  `koanf:"improver"`
	Evolution EvolutionConfig `koanf:"evolution"`
	Episodic  EpisodicConfig  `koanf:"episodic"`
	Manifest  ManifestConfig  `koanf:"manifest"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is json or console.
	Format string `koanf:"format"`
}

// TelemetryConfig configures OTLP metric export.
type TelemetryConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Endpoint    string        `koanf:"endpoint"`
	Protocol    string        `koanf:"protocol"` // grpc or http
	ServiceName string        `koanf:"service_name"`
	Insecure    bool          `koanf:"insecure"`
	Interval    time.Duration `koanf:"interval"`
}

// BanditConfig configures the strategy meta-controller.
type BanditConfig struct {
	// Active names the initially active strategy. Empty means the
	// controller default.
	Active string `koanf:"active"`
	// Window is the per-strategy evaluation window size.
	Window int `koanf:"window"`
	// Epsilon is the epsilon-greedy exploration rate. A pointer so an
	// explicit 0 (pure exploitation) is distinguishable from unset.
	Epsilon *float64 `koanf:"epsilon"`
	// UCBC is the UCB1 exploration constant.
	UCBC float64 `koanf:"ucb_c"`
	// Seed seeds the shared random source. Zero means time-seeded.
	Seed int64 `koanf:"seed"`
}

// RewardConfig configures the reward model.
type RewardConfig struct {
	// Alpha is the EMA smoothing factor in (0, 1].
	Alpha float64 `koanf:"alpha"`
}

// ImproverConfig configures the background cycle scheduler.
type ImproverConfig struct {
	Enabled bool `koanf:"enabled"`
	// Interval is the time between improvement cycles.
	Interval time.Duration `koanf:"interval"`
	// EvolveEvery runs an evolution cycle after every n improvement
	// cycles. An explicit 0 disables evolution; a pointer so that 0 is
	// distinguishable from unset.
	EvolveEvery *int `koanf:"evolve_every"`
}

// EvolutionConfig configures protocol mutation.
type EvolutionConfig struct {
	Threshold float64 `koanf:"threshold"`
	Noise     float64 `koanf:"noise"`
}

// EpisodicConfig configures episode persistence.
type EpisodicConfig struct {
	// Sink is one of nop, memory, chromem, nats.
	Sink       string `koanf:"sink"`
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
	Compress   bool   `koanf:"compress"`
	URL        string `koanf:"url"`
	Subject    string `koanf:"subject"`
}

// ManifestConfig configures protocol manifest loading.
type ManifestConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}
