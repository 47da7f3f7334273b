package config

import "time"

type AppInfo struct {
	Name    string `config:"name" validate:"required"`
	Version string `config:"version" validate:"required"`
}

type TLSConfig struct {
	Enabled  bool   `config:"enabled"`
	CertFile string `config:"certFile" validate:"required_if=Enabled true"`
	KeyFile  string `config:"keyFile" validate:"required_if=Enabled true"`
}

// CORSConfig enables cross-origin access to every route when AllowOrigins
// is set, e.g. ["https://console.example.com"] or ["*"].
type CORSConfig struct {
	AllowOrigins []string `config:"allowOrigins" validate:"dive,required"`
}

type ServerConfig struct {
	Addr            string        `config:"addr" validate:"required"`
	ReadTimeout     time.Duration `config:"readTimeout"`
	WriteTimeout    time.Duration `config:"writeTimeout"`
	IdleTimeout     time.Duration `config:"idleTimeout"`
	ShutdownTimeout time.Duration `config:"shutdownTimeout" validate:"gte=0"`
	TLS             TLSConfig     `config:"tls"`
	CORS            CORSConfig    `config:"cors"`
}

type LoggingConfig struct {
	Level  string `config:"level" validate:"oneof=debug info warn error"`
	Format string `config:"format" validate:"oneof=text json"`
}

type MetricsConfig struct {
	Enabled bool `config:"enabled"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `config:"metrics"`
}

type ActuatorConfig struct {
	BasePath string `config:"basePath" validate:"startswith=/"`
}

// AdminConfig controls the module administration API. An empty Token
// leaves every mutating request unauthorized.
type AdminConfig struct {
	BasePath        string `config:"basePath" validate:"startswith=/"`
	Token           string `config:"token"`
	MaxArchiveBytes int64  `config:"maxArchiveBytes" validate:"gt=0"`
}

// ModulesConfig says where module manifests are picked up at boot.
type ModulesConfig struct {
	Dir       string `config:"dir"`
	AutoStart bool   `config:"autoStart"`
	// MountPrefix is where module handlers are served.
	MountPrefix string `config:"mountPrefix" validate:"startswith=/"`
}

type Root struct {
	App           AppInfo             `config:"app"`
	Server        ServerConfig        `config:"server"`
	Logging       LoggingConfig       `config:"logging"`
	Observability ObservabilityConfig `config:"observability"`
	Actuator      ActuatorConfig      `config:"actuator"`
	Admin         AdminConfig         `config:"admin"`
	Modules       ModulesConfig       `config:"modules"`
}

// Defaults is the lowest-precedence source of every Root field.
func Defaults() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":    "modhost",
			"version": "dev",
		},
		"server": map[string]any{
			"addr":            ":8080",
			"readTimeout":     "15s",
			"writeTimeout":    "30s",
			"idleTimeout":     "60s",
			"shutdownTimeout": "15s",
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"observability": map[string]any{
			"metrics": map[string]any{"enabled": true},
		},
		"actuator": map[string]any{
			"basePath": "/actuator",
		},
		"admin": map[string]any{
			"basePath":        "/admin/modules",
			"maxArchiveBytes": 1 << 20,
		},
		"modules": map[string]any{
			"dir":         "modules",
			"autoStart":   true,
			"mountPrefix": "/modules",
		},
	}
}
