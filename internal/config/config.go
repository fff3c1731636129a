package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Odin     OdinConfig     `yaml:"odin"`
	Activity ActivityConfig `yaml:"activity"`
}

type AppConfig struct {
	Name string `yaml:"name"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig: DSN vacío = repos in-memory.
type DBConfig struct {
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OdinConfig: sin BaseURL/APIKey el servicio arranca en modo dev (X-Debug-User-ID).
type OdinConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

func (o OdinConfig) Enabled() bool {
	return strings.TrimSpace(o.BaseURL) != "" && strings.TrimSpace(o.APIKey) != ""
}

type ActivityConfig struct {
	ReadWindow time.Duration `yaml:"read_window"`
	QueueSize  int           `yaml:"queue_size"`
}

func Default() Config {
	return Config{
		App: AppConfig{Name: "productivity-api"},
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		DB:  DBConfig{Migrate: true},
		Log: LogConfig{Level: "info", Format: "text"},
		Odin: OdinConfig{
			Timeout: 5 * time.Second,
		},
		Activity: ActivityConfig{
			ReadWindow: 7 * 24 * time.Hour,
			QueueSize:  256,
		},
	}
}

// Load: defaults -> YAML (CONFIG_PATH) -> .env -> variables de entorno.
// Las variables de entorno ya definidas tienen prioridad sobre .env.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server port is required")
	}
	if c.Activity.ReadWindow <= 0 {
		return errors.New("activity read window must be positive")
	}
	if c.Activity.QueueSize <= 0 {
		return errors.New("activity queue size must be positive")
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

func applyEnv(cfg *Config) error {
	setString("APP_NAME", &cfg.App.Name)
	setString("PORT", &cfg.Server.Port)
	setString("DB_DSN", &cfg.DB.DSN)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)
	setString("ODIN_BASE_URL", &cfg.Odin.BaseURL)
	setString("ODIN_API_KEY", &cfg.Odin.APIKey)

	if v, ok := lookup("DB_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DB_MIGRATE: %w", err)
		}
		cfg.DB.Migrate = b
	}
	if v, ok := lookup("ACTIVITY_READ_WINDOW"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ACTIVITY_READ_WINDOW: %w", err)
		}
		cfg.Activity.ReadWindow = d
	}
	if v, ok := lookup("ACTIVITY_QUEUE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ACTIVITY_QUEUE_SIZE: %w", err)
		}
		cfg.Activity.QueueSize = n
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}
