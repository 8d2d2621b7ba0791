package generator

import (
	"fmt"
	"math"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/rle"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// Config - параметры рельефа
type Config struct {
	Seed       int64   `yaml:"seed"`
	NoiseScale float64 `yaml:"noise_scale"` // масштаб основного шума (высота)
	BiomeScale float64 `yaml:"biome_scale"` // масштаб шума биомов
	BaseHeight int32   `yaml:"base_height"`
	Amplitude  float64 `yaml:"amplitude"`
	SeaLevel   int32   `yaml:"sea_level"`
	DirtDepth  int32   `yaml:"dirt_depth"`
	SnowLine   int32   `yaml:"snow_line"`
}

// DefaultConfig возвращает настройки по умолчанию
func DefaultConfig() Config {
	return Config{
		Seed:       42,
		NoiseScale: 0.05,
		BiomeScale: 0.02,
		BaseHeight: 16,
		Amplitude:  12,
		SeaLevel:   12,
		DirtDepth:  3,
		SnowLine:   26,
	}
}

// Пороги шума биомов
const (
	desertMax = 0.35 // ниже - пустыня
	gravelMin = 0.70 // выше - галечные берега
)

// Generator заполняет сетку блоков рельефом. Каждая колонка записывается
// несколькими диапазонами: бесконечный камень снизу, слой земли, верхний
// блок и вода до уровня моря.
type Generator struct {
	cfg    Config
	height *Noise
	biome  *Noise
	logger *logging.Logger
}

// New создаёт генератор
func New(cfg Config) *Generator {
	if cfg.DirtDepth < 0 {
		cfg.DirtDepth = 0
	}
	return &Generator{
		cfg:    cfg,
		height: NewNoise(2.0, 2.0, 3, cfg.Seed),
		biome:  NewNoise(2.0, 2.0, 3, cfg.Seed+42),
		logger: logging.GetComponentLogger("generator"),
	}
}

// Config возвращает параметры генератора
func (g *Generator) Config() Config { return g.cfg }

// Height возвращает высоту поверхности в точке (x, y)
func (g *Generator) Height(x, y int) int32 {
	n := g.height.At(float64(x)*g.cfg.NoiseScale, float64(y)*g.cfg.NoiseScale)
	return g.cfg.BaseHeight + int32(math.Round((n-0.5)*2*g.cfg.Amplitude))
}

// Surface возвращает верхний блок колонки
func (g *Generator) Surface(x, y int, h int32) block.BlockID {
	switch {
	case h >= g.cfg.SnowLine:
		return block.SnowBlockID
	case h <= g.cfg.SeaLevel+1:
		b := g.biome.At(float64(x)*g.cfg.BiomeScale, float64(y)*g.cfg.BiomeScale)
		if b > gravelMin {
			return block.GravelBlockID
		}
		return block.SandBlockID
	}
	b := g.biome.At(float64(x)*g.cfg.BiomeScale, float64(y)*g.cfg.BiomeScale)
	if b < desertMax {
		return block.SandBlockID
	}
	return block.GrassBlockID
}

// GenerateColumn записывает колонку (x, y). Колонки вне плотной сетки - ошибка.
func (g *Generator) GenerateColumn(grid rle.Grid[block.BlockID], x, y int) error {
	h := g.Height(x, y)
	top := g.Surface(x, y, h)

	under := block.DirtBlockID
	if top == block.SandBlockID || top == block.GravelBlockID {
		under = top
	}
	stoneTop := h - 1 - g.cfg.DirtDepth

	if err := grid.SetRangeInfinite(x, y, stoneTop, block.StoneBlockID); err != nil {
		return fmt.Errorf("колонка (%d,%d): %w", x, y, err)
	}
	if g.cfg.DirtDepth > 0 {
		if err := grid.SetRange(x, y, stoneTop+1, h-1, under); err != nil {
			return fmt.Errorf("колонка (%d,%d): %w", x, y, err)
		}
	}
	if err := grid.Set(x, y, h, top); err != nil {
		return fmt.Errorf("колонка (%d,%d): %w", x, y, err)
	}
	if h < g.cfg.SeaLevel {
		if err := grid.SetRange(x, y, h+1, g.cfg.SeaLevel, block.WaterBlockID); err != nil {
			return fmt.Errorf("колонка (%d,%d): %w", x, y, err)
		}
	}
	return nil
}

// Generate заполняет прямоугольник [x0, x0+w) × [y0, y0+h)
func (g *Generator) Generate(grid rle.Grid[block.BlockID], x0, y0, w, h int) error {
	for x := x0; x < x0+w; x++ {
		for y := y0; y < y0+h; y++ {
			if err := g.GenerateColumn(grid, x, y); err != nil {
				return err
			}
		}
	}
	g.logger.Info("Сгенерировано %d колонок, сид %d", w*h, g.cfg.Seed)
	return nil
}
