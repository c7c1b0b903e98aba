package config

import (
	"fmt"
	"os"
	"strconv"

	"mandala-magic/internal/mandala/models"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string

	WSPort         string
	DBPath         string
	MigrationsPath string
	ExportDir      string
	MDNSEnabled    bool
	MDNSInstance   string

	CanvasWidth   int
	CanvasHeight  int
	MaxCanvasSide int

	ConfigFile string
	Drawing    DrawingConfig
}

// DrawingConfig описывает необязательный YAML-файл с настройками рисования по умолчанию.
type DrawingConfig struct {
	Settings      models.Settings `yaml:"settings"`
	PreviewWidth  int             `yaml:"preview_width"`
	PreviewHeight int             `yaml:"preview_height"`
}

// Load загружает конфигурацию из переменных окружения и, если задан CONFIG_FILE, из YAML
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		CORSOrigins:  getEnv("CORS_ORIGINS", "*"),

		WSPort:         getEnv("WS_PORT", "3001"),
		DBPath:         getEnv("DB_PATH", "data/mandala.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations/001_init_mandala.sql"),
		ExportDir:      getEnv("EXPORT_DIR", "data/exports"),
		MDNSEnabled:    getEnvAsBool("MDNS_ENABLED", false),
		MDNSInstance:   getEnv("MDNS_INSTANCE", ""),

		CanvasWidth:   getEnvAsInt("CANVAS_WIDTH", 1280),
		CanvasHeight:  getEnvAsInt("CANVAS_HEIGHT", 720),
		MaxCanvasSide: getEnvAsInt("MAX_CANVAS_SIDE", 8192),

		ConfigFile: getEnv("CONFIG_FILE", ""),
		Drawing:    DefaultDrawing(),
	}

	if cfg.ConfigFile != "" {
		d, err := LoadDrawing(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Drawing = d
	}
	return cfg, nil
}

func DefaultDrawing() DrawingConfig {
	return DrawingConfig{
		Settings:      models.DefaultSettings(),
		PreviewWidth:  200,
		PreviewHeight: 150,
	}
}

// LoadDrawing читает YAML поверх значений по умолчанию: отсутствующие поля не меняются.
func LoadDrawing(path string) (DrawingConfig, error) {
	d := DefaultDrawing()
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parse config file: %w", err)
	}
	return d, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}
