package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/voxel-engine/internal/generator"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Grid      GridConfig       `yaml:"grid"`
	Generator generator.Config `yaml:"generator"`
	Mesher    MesherConfig     `yaml:"mesher"`
	Storage   StorageConfig    `yaml:"storage"`
	Server    ServerConfig     `yaml:"server"`
	Render    RenderConfig     `yaml:"render"`
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
}

// GridConfig - область мира, которую движок держит в памяти
type GridConfig struct {
	// Dense - плотная сетка Size×Size вместо разреженной
	Dense bool `yaml:"dense"`
	// Size - сторона генерируемой области
	Size int `yaml:"size"`
}

type MesherConfig struct {
	Workers int `yaml:"workers"`
	// TileShift - размер участка одного пакета: 1<<TileShift колонок по стороне
	TileShift int `yaml:"tile_shift"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
	// InMemory - не писать на диск (path игнорируется)
	InMemory bool `yaml:"in_memory"`
}

type ServerConfig struct {
	RESTPort int    `yaml:"rest_port"`
	Secret   string `yaml:"secret"` // base64, не короче 32 байт
}

type RenderConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
	QueueSize     int           `yaml:"queue_size"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// Default возвращает конфигурацию, с которой движок запускается без файла
func Default() *Config {
	return &Config{
		Grid:      GridConfig{Size: 64},
		Generator: generator.DefaultConfig(),
		Mesher:    MesherConfig{Workers: 4, TileShift: 4},
		Storage:   StorageConfig{Path: "data"},
		Render:    RenderConfig{FrameInterval: 16 * time.Millisecond, QueueSize: 256},
		Logging:   LoggingConfig{ConsoleLevel: "INFO", FileLevel: "DEBUG"},
		Telemetry: TelemetryConfig{Service: "voxeld"},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8088)
}

// GetSecret возвращает секрет JWT: config -> env -> пусто (сгенерировать)
func (s *ServerConfig) GetSecret() string {
	if s.Secret != "" {
		return s.Secret
	}
	return os.Getenv("VOXEL_JWT_SECRET")
}

// GetPath возвращает каталог данных: config -> env -> "data"
func (s *StorageConfig) GetPath() string {
	if s.InMemory {
		return ""
	}
	if s.Path != "" {
		return s.Path
	}
	if env := os.Getenv("VOXEL_DATA_DIR"); env != "" {
		return env
	}
	return "data"
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет значения, без которых движок не запустится
func (c *Config) Validate() error {
	if c.Grid.Size <= 0 {
		return fmt.Errorf("grid.size должен быть положительным, получено %d", c.Grid.Size)
	}
	if c.Mesher.TileShift < 0 || c.Mesher.TileShift > 10 {
		return fmt.Errorf("mesher.tile_shift вне диапазона 0..10: %d", c.Mesher.TileShift)
	}
	if c.Render.FrameInterval <= 0 {
		return fmt.Errorf("render.frame_interval должен быть положительным")
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}
