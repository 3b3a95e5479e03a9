package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned by Validate when the Teamwork client cannot be built.
var ErrMissingCredentials = errors.New("teamwork base_url and api_key are required")

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Teamwork  TeamworkConfig  `yaml:"teamwork"`
	Sheet     SheetConfig     `yaml:"sheet"`
	History   HistoryConfig   `yaml:"history"`
	Phases    PhasesConfig    `yaml:"phases"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
	// DefaultOperator is the consultant name used when auth is off.
	DefaultOperator string `yaml:"default_operator"`
}

// TeamworkConfig holds the remote project-management API settings.
type TeamworkConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	AuthMode       string        `yaml:"auth_mode"` // basic, bearer or auto
	PageSize       int           `yaml:"page_size"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	PeopleTimeout  time.Duration `yaml:"people_timeout"`
	PostTimeout    time.Duration `yaml:"post_timeout"`
	DescriptionMax int           `yaml:"description_max"`
}

// SheetConfig holds defaults applied to freshly extracted service sheets.
type SheetConfig struct {
	Tag               string  `yaml:"tag"`
	InheritTags       bool    `yaml:"inherit_tags"`
	ServiceType       string  `yaml:"service_type"`
	Vertical          string  `yaml:"vertical"`
	HourlyRate        float64 `yaml:"hourly_rate"`
	RequireConsultant bool    `yaml:"require_consultant"`
}

type HistoryConfig struct {
	Path      string `yaml:"path"`
	ReportDir string `yaml:"report_dir"` // empty disables report files
}

// PhasesConfig lists the project phases that receive time entries and maps
// classified service types onto them.
type PhasesConfig struct {
	Names         []string            `yaml:"names"`
	ByServiceType map[string][]string `yaml:"by_service_type"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		DB: DBConfig{
			Path: "apontador.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Teamwork: TeamworkConfig{
			AuthMode:       "basic",
			PageSize:       200,
			FetchTimeout:   25 * time.Second,
			PeopleTimeout:  20 * time.Second,
			PostTimeout:    30 * time.Second,
			DescriptionMax: 2000,
		},
		Sheet: SheetConfig{
			Tag:               "apontavel",
			InheritTags:       true,
			ServiceType:       "Implantação",
			Vertical:          "Construshow",
			HourlyRate:        180.0,
			RequireConsultant: true,
		},
		History: HistoryConfig{
			Path: "lancamentos_log.json",
		},
		Phases: PhasesConfig{
			Names: []string{
				"Análise de Processos/ Aderência",
				"Mapeamento Operacional",
				"1° Importação de Dados",
				"Configurações",
				"Tributação",
				"Validação das Configurações",
				"Treinamento a Usuários",
				"Simulação e Homologação",
				"Preparação Go-Live",
				"Go-Live/ Operação Assistida",
				"Treinar Supervisor do Cliente",
				"Retorno Técnico - Pós Go-Live",
				"Fechamentos",
			},
			ByServiceType: map[string][]string{
				"Implantação":    {"1° Importação de Dados", "Preparação Go-Live", "Go-Live/ Operação Assistida"},
				"Configuração":   {"Configurações", "Tributação", "Validação das Configurações"},
				"Treinamento":    {"Treinamento a Usuários", "Treinar Supervisor do Cliente"},
				"Suporte":        {"Retorno Técnico - Pós Go-Live", "Fechamentos"},
				"Personalização": {"Análise de Processos/ Aderência", "Mapeamento Operacional"},
				"Outros":         {"Simulação e Homologação"},
			},
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("APONTADOR_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings required to talk to Teamwork.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Teamwork.BaseURL) == "" || strings.TrimSpace(c.Teamwork.APIKey) == "" {
		return ErrMissingCredentials
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("APONTADOR_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("APONTADOR_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid APONTADOR_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("APONTADOR_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("APONTADOR_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("APONTADOR_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("APONTADOR_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if enabled := os.Getenv("APONTADOR_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid APONTADOR_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if op := os.Getenv("APONTADOR_DEFAULT_OPERATOR"); op != "" {
		cfg.Auth.DefaultOperator = op
	}
	if base := os.Getenv("APONTADOR_TEAMWORK_URL"); base != "" {
		cfg.Teamwork.BaseURL = base
	}
	if key := os.Getenv("APONTADOR_TEAMWORK_API_KEY"); key != "" {
		cfg.Teamwork.APIKey = key
	}
	if mode := os.Getenv("APONTADOR_TEAMWORK_AUTH_MODE"); mode != "" {
		cfg.Teamwork.AuthMode = mode
	}
	if tag := os.Getenv("APONTADOR_TAG"); tag != "" {
		cfg.Sheet.Tag = tag
	}
	if path := os.Getenv("APONTADOR_HISTORY_PATH"); path != "" {
		cfg.History.Path = path
	}
	if dir := os.Getenv("APONTADOR_REPORT_DIR"); dir != "" {
		cfg.History.ReportDir = dir
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
