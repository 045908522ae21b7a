package domain

import (
	"context"

	"github.com/google/uuid"
)

// CausalityAssessor produces an advisory causality suggestion for a case.
type CausalityAssessor interface {
	AssessCausality(c *Case) (*AssessmentSuggestion, error)
}

// AssessmentRepository defines the interface for assessment audit persistence
type AssessmentRepository interface {
	Create(ctx context.Context, record *AssessmentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AssessmentRecord, error)
	ListByReportCode(ctx context.Context, reportCode string, limit int) ([]*AssessmentRecord, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
