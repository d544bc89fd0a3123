// pkg/config/env_config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// EnvironmentConfig holds deployment settings read from ORRERY_* variables
type EnvironmentConfig struct {
	ListenAddr   string
	ListenPort   int
	MaxClients   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UpdateRate   int
	TimeScale    float64
	MessageRate  float64
	ClientBurst  int

	// Circuit Breaker Configuration
	CircuitBreakerMaxRequests         uint32
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails uint32

	// Resource Management Configuration
	MaxMemoryMB           int
	MaxGoroutines         int
	ShutdownTimeout       time.Duration
	ResourceCheckInterval time.Duration
}

// ValidationError reports an invalid configuration field
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// DefaultEnvironmentConfig returns the settings used when no variables are set
func DefaultEnvironmentConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		ListenAddr:   "localhost",
		ListenPort:   4577,
		MaxClients:   32,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		UpdateRate:   20,
		TimeScale:    1e6,
		MessageRate:  10,
		ClientBurst:  20,

		CircuitBreakerMaxRequests:         3,
		CircuitBreakerInterval:            60 * time.Second,
		CircuitBreakerTimeout:             30 * time.Second,
		CircuitBreakerMaxConsecutiveFails: 5,

		MaxMemoryMB:           256,
		MaxGoroutines:         200,
		ShutdownTimeout:       30 * time.Second,
		ResourceCheckInterval: 10 * time.Second,
	}
}

// LoadConfigFromEnv reads and validates the environment configuration
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	d := DefaultEnvironmentConfig()
	config := &EnvironmentConfig{
		ListenAddr:   getEnvOrDefault("ORRERY_LISTEN_ADDR", d.ListenAddr),
		ListenPort:   getEnvAsIntOrDefault("ORRERY_LISTEN_PORT", d.ListenPort),
		MaxClients:   getEnvAsIntOrDefault("ORRERY_MAX_CLIENTS", d.MaxClients),
		ReadTimeout:  getEnvAsDurationOrDefault("ORRERY_READ_TIMEOUT", d.ReadTimeout),
		WriteTimeout: getEnvAsDurationOrDefault("ORRERY_WRITE_TIMEOUT", d.WriteTimeout),
		UpdateRate:   getEnvAsIntOrDefault("ORRERY_UPDATE_RATE", d.UpdateRate),
		TimeScale:    getEnvAsFloatOrDefault("ORRERY_TIME_SCALE", d.TimeScale),
		MessageRate:  getEnvAsFloatOrDefault("ORRERY_MESSAGE_RATE", d.MessageRate),
		ClientBurst:  getEnvAsIntOrDefault("ORRERY_CLIENT_BURST", d.ClientBurst),

		CircuitBreakerMaxRequests:         uint32(getEnvAsIntOrDefault("ORRERY_CB_MAX_REQUESTS", int(d.CircuitBreakerMaxRequests))),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault("ORRERY_CB_INTERVAL", d.CircuitBreakerInterval),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault("ORRERY_CB_TIMEOUT", d.CircuitBreakerTimeout),
		CircuitBreakerMaxConsecutiveFails: uint32(getEnvAsIntOrDefault("ORRERY_CB_MAX_FAILS", int(d.CircuitBreakerMaxConsecutiveFails))),

		MaxMemoryMB:           getEnvAsIntOrDefault("ORRERY_MAX_MEMORY_MB", d.MaxMemoryMB),
		MaxGoroutines:         getEnvAsIntOrDefault("ORRERY_MAX_GOROUTINES", d.MaxGoroutines),
		ShutdownTimeout:       getEnvAsDurationOrDefault("ORRERY_SHUTDOWN_TIMEOUT", d.ShutdownTimeout),
		ResourceCheckInterval: getEnvAsDurationOrDefault("ORRERY_RESOURCE_CHECK_INTERVAL", d.ResourceCheckInterval),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration ranges
func (c *EnvironmentConfig) Validate() error {
	return validateEnvironmentConfig(c)
}

// Address joins ListenAddr and ListenPort
func (c *EnvironmentConfig) Address() string {
	return net.JoinHostPort(c.ListenAddr, strconv.Itoa(c.ListenPort))
}

func validateEnvironmentConfig(c *EnvironmentConfig) error {
	if c.ListenAddr == "" {
		return &ValidationError{Field: "ListenAddr", Value: c.ListenAddr, Message: "must not be empty"}
	}
	if c.ListenPort < 1024 || c.ListenPort > 65535 {
		return &ValidationError{Field: "ListenPort", Value: c.ListenPort, Message: "must be between 1024 and 65535"}
	}
	if c.MaxClients < 1 || c.MaxClients > 1000 {
		return &ValidationError{Field: "MaxClients", Value: c.MaxClients, Message: "must be between 1 and 1000"}
	}
	if c.ReadTimeout < time.Second || c.ReadTimeout > time.Minute {
		return &ValidationError{Field: "ReadTimeout", Value: c.ReadTimeout, Message: "must be between 1s and 60s"}
	}
	if c.WriteTimeout < time.Second || c.WriteTimeout > time.Minute {
		return &ValidationError{Field: "WriteTimeout", Value: c.WriteTimeout, Message: "must be between 1s and 60s"}
	}
	if c.UpdateRate < 1 || c.UpdateRate > 100 {
		return &ValidationError{Field: "UpdateRate", Value: c.UpdateRate, Message: "must be between 1 and 100"}
	}
	if c.TimeScale < 0 {
		return &ValidationError{Field: "TimeScale", Value: c.TimeScale, Message: "must not be negative"}
	}
	if c.MessageRate <= 0 {
		return &ValidationError{Field: "MessageRate", Value: c.MessageRate, Message: "must be positive"}
	}
	if c.ClientBurst < 1 {
		return &ValidationError{Field: "ClientBurst", Value: c.ClientBurst, Message: "must be positive"}
	}
	if c.CircuitBreakerMaxRequests < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: c.CircuitBreakerMaxRequests, Message: "must be positive"}
	}
	if c.CircuitBreakerInterval < time.Second {
		return &ValidationError{Field: "CircuitBreakerInterval", Value: c.CircuitBreakerInterval, Message: "must be at least 1s"}
	}
	if c.CircuitBreakerTimeout < time.Second {
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: c.CircuitBreakerTimeout, Message: "must be at least 1s"}
	}
	if c.CircuitBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: c.CircuitBreakerMaxConsecutiveFails, Message: "must be positive"}
	}
	if c.MaxMemoryMB < 16 {
		return &ValidationError{Field: "MaxMemoryMB", Value: c.MaxMemoryMB, Message: "must be at least 16"}
	}
	if c.MaxGoroutines < 10 {
		return &ValidationError{Field: "MaxGoroutines", Value: c.MaxGoroutines, Message: "must be at least 10"}
	}
	if c.ShutdownTimeout < time.Second {
		return &ValidationError{Field: "ShutdownTimeout", Value: c.ShutdownTimeout, Message: "must be at least 1s"}
	}
	if c.ResourceCheckInterval < 100*time.Millisecond {
		return &ValidationError{Field: "ResourceCheckInterval", Value: c.ResourceCheckInterval, Message: "must be at least 100ms"}
	}
	return nil
}

// ApplyEnvironment copies deployment settings onto the scene's telemetry and
// simulation sections.
func ApplyEnvironment(scene *SceneConfig, env *EnvironmentConfig) {
	scene.Telemetry.Address = env.Address()
	scene.Telemetry.MaxClients = env.MaxClients
	scene.Telemetry.UpdateRate = env.UpdateRate
	scene.Telemetry.MessageRate = env.MessageRate
	scene.Telemetry.ClientBurst = env.ClientBurst
	scene.Simulation.TimeScale = env.TimeScale
}

// ApplyEnvironmentOverrides applies only the variables that are actually set,
// leaving the rest of the scene untouched.
func ApplyEnvironmentOverrides(scene *SceneConfig) error {
	host, port := scene.Telemetry.hostPort()
	if v := os.Getenv("ORRERY_LISTEN_ADDR"); v != "" {
		host = v
	}
	if v := os.Getenv("ORRERY_LISTEN_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1024 || p > 65535 {
			return &ValidationError{Field: "ListenPort", Value: v, Message: "must be between 1024 and 65535"}
		}
		port = v
	}
	scene.Telemetry.Address = net.JoinHostPort(host, port)

	if v := os.Getenv("ORRERY_MAX_CLIENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return &ValidationError{Field: "MaxClients", Value: v, Message: "must be a positive integer"}
		}
		scene.Telemetry.MaxClients = n
	}
	if v := os.Getenv("ORRERY_UPDATE_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return &ValidationError{Field: "UpdateRate", Value: v, Message: "must be between 1 and 100"}
		}
		scene.Telemetry.UpdateRate = n
	}
	if v := os.Getenv("ORRERY_TIME_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return &ValidationError{Field: "TimeScale", Value: v, Message: "must be a non-negative number"}
		}
		scene.Simulation.TimeScale = f
	}
	if v := os.Getenv("ORRERY_SERVER_URL"); v != "" {
		scene.Telemetry.ServerURL = v
	}
	scene.Moon.Enabled = getEnvAsBoolOrDefault("ORRERY_MOON_ENABLED", scene.Moon.Enabled)
	return nil
}

func (t TelemetryConfig) hostPort() (string, string) {
	host, port, err := net.SplitHostPort(t.Address)
	if err != nil {
		return "localhost", "4577"
	}
	return host, port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
