package config

import "time"

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	FrontendURL string `yaml:"frontend_url"`
	BackendURL  string `yaml:"backend_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// MercadoPagoConfig holds processor credentials and client settings
type MercadoPagoConfig struct {
	AccessToken    string        `yaml:"access_token"`
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// WorkerConfig bounds the renewal sweep worker
type WorkerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	DueWindow   time.Duration `yaml:"due_window"`
	GracePeriod time.Duration `yaml:"grace_period"`
	BatchSize   int           `yaml:"batch_size"`
}
