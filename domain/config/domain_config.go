package config

import (
	"errors"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Screen constraints
	MaxComponentDepth   int
	MaxChildrenPerNode  int
	MaxComponentsPerScreen int
	MaxScreenBytes      int

	// Binding settings
	EntityScopePrefixes []string
	MaxBindingsPerValue int

	// Sync constraints
	MaxSyncRetries      int
	SyncBatchSize       int
	ReplayInterval      time.Duration
	SyncRequestTimeout  time.Duration

	// Input constraints
	MaxInputValueLength int
	MaxPayloadBytes     int

	// Validation settings
	AllowUnknownComponentTypes bool
	RequireUniqueComponentIDs  bool

	// Feature flags
	EnableScreenWatch    bool
	EnableRepeatBindings bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Screen constraints
		MaxComponentDepth:      32,
		MaxChildrenPerNode:     200,
		MaxComponentsPerScreen: 2000,
		MaxScreenBytes:         1 << 20,

		// Binding settings
		EntityScopePrefixes: []string{"job", "customer", "technician"},
		MaxBindingsPerValue: 16,

		// Sync constraints
		MaxSyncRetries:     5,
		SyncBatchSize:      25,
		ReplayInterval:     15 * time.Second,
		SyncRequestTimeout: 30 * time.Second,

		// Input constraints
		MaxInputValueLength: 10000,
		MaxPayloadBytes:     256 << 10,

		// Validation settings
		AllowUnknownComponentTypes: true,
		RequireUniqueComponentIDs:  true,

		// Feature flags
		EnableScreenWatch:    false,
		EnableRepeatBindings: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Tighter limits for production
	config.MaxComponentDepth = 24
	config.MaxComponentsPerScreen = 1000
	config.MaxInputValueLength = 5000

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxComponentDepth = 64
	config.MaxComponentsPerScreen = 10000
	config.ReplayInterval = 2 * time.Second

	// Hot reload of screen definitions while authoring
	config.EnableScreenWatch = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxComponentDepth < 1 {
		return errors.New("MaxComponentDepth must be positive")
	}
	if c.MaxSyncRetries < 0 {
		return errors.New("MaxSyncRetries cannot be negative")
	}
	if c.SyncBatchSize < 1 {
		return errors.New("SyncBatchSize must be positive")
	}
	return nil
}
