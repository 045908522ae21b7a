package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/adr-causality-server/internal/domain"
)

// EnvPrefix is prepended to every environment variable override, e.g. ADR_SERVER_PORT.
const EnvPrefix = "ADR"

var _ domain.ConfigManager = (*Manager)(nil)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v           *viper.Viper
	configPaths []string
	config      *domain.Config
	keywords    domain.KeywordSets
}

// NewManager creates a new configuration manager. configPaths replaces the
// default search path (".", "./config", "/etc/adr-causality/") when given.
func NewManager(configPaths ...string) (*Manager, error) {
	if len(configPaths) == 0 {
		configPaths = []string{".", "./config", "/etc/adr-causality/"}
	}
	m := &Manager{configPaths: configPaths}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range m.configPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment variables still apply
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	keywords, err := LoadKeywordSets(config.Causality.KeywordsFile)
	if err != nil {
		return err
	}

	m.v = v
	m.config = config
	m.keywords = keywords
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_batch_size", 100)

	// Database defaults; an empty host disables the audit trail
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "adr_causality")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "adr:suggestion:")
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.dial_timeout", "2s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Review store defaults
	v.SetDefault("review.backend", "sqlite")
	v.SetDefault("review.sqlite_path", "data/reviews.db")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	// Causality engine defaults
	v.SetDefault("causality.keywords_file", "")
	p := domain.DefaultCausalityPolicy()
	v.SetDefault("causality.policy.who_weight", p.WHOWeight)
	v.SetDefault("causality.policy.naranjo_weight", p.NaranjoWeight)
	v.SetDefault("causality.policy.confidence_base", p.ConfidenceBase)
	v.SetDefault("causality.policy.confidence_ceiling", p.ConfidenceCeiling)
	v.SetDefault("causality.policy.onset_time_bonus", p.OnsetTimeBonus)
	v.SetDefault("causality.policy.related_tests_bonus", p.RelatedTestsBonus)
	v.SetDefault("causality.policy.medical_history_bonus", p.MedicalHistoryBonus)
	v.SetDefault("causality.policy.treatment_response_bonus", p.TreatmentResponseBonus)
	v.SetDefault("causality.policy.agreement_bonus", p.AgreementBonus)
	v.SetDefault("causality.policy.drug_start_date_bonus", p.DrugStartDateBonus)
	v.SetDefault("causality.policy.drug_end_date_bonus", p.DrugEndDateBonus)
	v.SetDefault("causality.policy.drug_dosage_bonus", p.DrugDosageBonus)
	v.SetDefault("causality.policy.drug_dechallenge_bonus", p.DrugDechallengeBonus)
	v.SetDefault("causality.policy.drug_rechallenge_bonus", p.DrugRechallengeBonus)
	v.SetDefault("causality.policy.drug_quality_cap", p.DrugQualityCap)
	v.SetDefault("causality.policy.no_drug_penalty", p.NoDrugPenalty)

	// MCP defaults
	v.SetDefault("mcp.server_name", "adr-causality-server")
	v.SetDefault("mcp.server_version", "1.0.0")

	v.SetDefault("environment", "development")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetKeywordSets returns the keyword vocabularies, from causality.keywords_file or built in.
func (m *Manager) GetKeywordSets() domain.KeywordSets {
	return m.keywords
}

// GetCausalityPolicy returns the engine weighting.
func (m *Manager) GetCausalityPolicy() domain.CausalityPolicy {
	return m.config.Causality.Policy
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("invalid max batch size: %d", config.Server.MaxBatchSize)
	}

	if config.Database.Enabled() {
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if config.Cache.MaxItems <= 0 {
		return fmt.Errorf("cache max items must be positive: %d", config.Cache.MaxItems)
	}

	switch config.Review.Backend {
	case "sqlite":
		if config.Review.SQLitePath == "" {
			return fmt.Errorf("review sqlite path is required")
		}
	case "postgres":
		if !config.Database.Enabled() {
			return fmt.Errorf("review backend postgres requires database.host")
		}
	default:
		return fmt.Errorf("invalid review backend: %s", config.Review.Backend)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	policy := config.Causality.Policy
	if err := policy.Validate(); err != nil {
		return err
	}
	if policy.ConfidenceCeiling < policy.ConfidenceBase {
		return fmt.Errorf("%w: confidence ceiling %d is below base %d",
			domain.ErrInvalidPolicy, policy.ConfidenceCeiling, policy.ConfidenceBase)
	}

	return m.keywords.Validate()
}

// GetDatabaseConnectionString returns a postgres:// URL suitable for pgx and golang-migrate
func (m *Manager) GetDatabaseConnectionString() string {
	return DatabaseURL(m.config.Database)
}

// DatabaseURL formats a PostgreSQL connection URL from its parts.
func DatabaseURL(db domain.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.Username, db.Password),
		Host:   db.Host + ":" + strconv.Itoa(db.Port),
		Path:   "/" + db.Database,
	}
	q := u.Query()
	if db.SSLMode != "" {
		q.Set("sslmode", db.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.v.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.v.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
