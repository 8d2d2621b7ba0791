package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/annel0/voxel-engine/internal/config"
	"github.com/annel0/voxel-engine/internal/generator"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/mesher"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/render"
	"github.com/annel0/voxel-engine/internal/rle"
	"github.com/annel0/voxel-engine/internal/storage"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrClosed - движок уже остановлен
	ErrClosed = errors.New("движок остановлен")
	// ErrUnknownBlock - ID блока не описан в реестре
	ErrUnknownBlock = errors.New("неизвестный блок")
)

// BlockLayout - раскладка вершины грани: позиция и цвет блока
var BlockLayout = []int{3, 3}

// blockFaceData кладёт в вершину координаты ячейки и цвет блока
func blockFaceData(q mesher.Quad[block.BlockID], _ mesher.Direction) []float32 {
	c := q.Value.Color()
	return []float32{float32(q.X), float32(q.Y), float32(q.Z), c[0], c[1], c[2]}
}

// Engine владеет сеткой блоков, хранилищем и пакетами граней.
//
// Сетка меняется только под записью mu; построение пакетов читает её
// под mu.RLock, поэтому между эпохами изменений сетка неизменна.
// Frame вызывается только на потоке контекста.
type Engine struct {
	mu   sync.RWMutex
	grid rle.Grid[block.BlockID]
	area int

	gen     *generator.Generator
	storage *storage.ColumnStorage

	queue     *render.ContextQueue
	device    render.Device
	pool      *mesher.Pool[block.BlockID]
	tileShift int

	batchMu sync.Mutex
	batches []*mesher.Batch[block.BlockID]
	// rebuildMu не даёт двум перестройкам перемешать пакеты
	rebuildMu sync.Mutex

	frames atomic.Uint64
	closed atomic.Bool
	logger *logging.Logger
}

// NewEngine собирает движок по конфигурации. store может быть nil -
// тогда LoadOrGenerate только генерирует, а Persist недоступен.
func NewEngine(cfg *config.Config, store *storage.ColumnStorage, device render.Device, reg prometheus.Registerer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if device == nil {
		device = render.NewMemoryDevice()
	}

	codec := rle.ScalarCodec[block.BlockID]{}
	var grid rle.Grid[block.BlockID]
	if cfg.Grid.Dense {
		grid = rle.NewArrayGrid[block.BlockID](cfg.Grid.Size, codec)
	} else {
		grid = rle.NewMapGrid[block.BlockID](codec)
	}

	logger := logging.GetEngineLogger()
	queue := render.NewContextQueue(cfg.Render.QueueSize)
	pool := mesher.NewPool(cfg.Mesher.Workers, mesher.BuildOptions[block.BlockID]{
		Layout:   BlockLayout,
		FaceData: blockFaceData,
		Device:   device,
		Runner:   queue,
		Metrics:  mesher.NewMetrics(reg),
		Logger:   logging.GetMesherLogger(),
	})

	return &Engine{
		grid:      grid,
		area:      cfg.Grid.Size,
		gen:       generator.New(cfg.Generator),
		storage:   store,
		queue:     queue,
		device:    device,
		pool:      pool,
		tileShift: cfg.Mesher.TileShift,
		logger:    logger,
	}, nil
}

// LoadOrGenerate загружает сетку из хранилища; если там пусто, генерирует
// рельеф на области area×area и сохраняет его.
func (e *Engine) LoadOrGenerate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.storage != nil {
		n, err := storage.LoadGrid(e.storage, e.grid)
		if err != nil {
			return err
		}
		if n > 0 {
			e.logger.Info("Мир загружен из хранилища: %d колонок", n)
			return nil
		}
	}

	if err := e.gen.Generate(e.grid, 0, 0, e.area, e.area); err != nil {
		return fmt.Errorf("генерация мира: %w", err)
	}
	if e.storage != nil {
		if _, err := storage.SaveGrid(e.storage, e.grid); err != nil {
			return err
		}
	}
	return nil
}

// Persist сохраняет все колонки и возвращает их число
func (e *Engine) Persist() (int, error) {
	if e.storage == nil {
		return 0, errors.New("хранилище не подключено")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return storage.SaveGrid(e.storage, e.grid)
}

// SetRange записывает блок в zMin..zMax колонки (x, y). Воздух очищает диапазон.
func (e *Engine) SetRange(x, y int, zMin, zMax int32, id block.BlockID) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !block.IsValidBlockID(id) {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == block.AirBlockID {
		return e.grid.EraseRange(x, y, zMin, zMax)
	}
	return e.grid.SetRange(x, y, zMin, zMax, id)
}

// tiles разбивает колонки сетки на участки (1<<tileShift)² колонок
func (e *Engine) tiles() [][]vec.Vec2 {
	byTile := make(map[vec.Vec2][]vec.Vec2)
	for c := range e.grid.Columns() {
		if c.IsEmpty() {
			continue
		}
		p := vec.Vec2{X: c.X(), Y: c.Y()}
		key := p.Tile(e.tileShift)
		byTile[key] = append(byTile[key], p)
	}

	keys := make([]vec.Vec2, 0, len(byTile))
	for k := range byTile {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Y < keys[j].Y
	})

	out := make([][]vec.Vec2, len(keys))
	for i, k := range keys {
		out[i] = byTile[k]
	}
	return out
}

// RebuildMeshes перестраивает все пакеты. Загрузки уходят в очередь
// контекста; старые пакеты освобождаются там же после новых загрузок.
// Возвращается без ожидания загрузок.
func (e *Engine) RebuildMeshes(ctx context.Context) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	ctx, span := observability.Tracer().Start(ctx, "engine.RebuildMeshes")
	defer span.End()

	e.mu.RLock()
	tiles := e.tiles()
	built, err := e.pool.BuildAll(ctx, e.grid, tiles)
	e.mu.RUnlock()
	if err != nil {
		for _, b := range built {
			if b != nil {
				b.Release()
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("перестройка пакетов: %w", err)
	}
	span.SetAttributes(attribute.Int("voxel.tiles", len(tiles)))

	e.batchMu.Lock()
	old := e.batches
	e.batches = built
	e.batchMu.Unlock()

	for _, b := range old {
		b.Release()
	}
	e.logger.Debug("Перестроено %d пакетов, освобождено %d", len(built), len(old))
	return len(built), nil
}

// FrameStats - итог одного кадра
type FrameStats struct {
	Tasks   int // выполнено задач контекста
	Batches int // пакетов в кадре
	Ready   int // из них готовых
	Drawn   int // нарисовано направлений
}

// Frame выполняет накопленные задачи контекста и рисует пакеты.
// Вызывается только на потоке контекста.
func (e *Engine) Frame(cam render.Camera) FrameStats {
	stats := FrameStats{Tasks: e.queue.Drain()}

	e.batchMu.Lock()
	batches := e.batches
	e.batchMu.Unlock()

	stats.Batches = len(batches)
	for _, b := range batches {
		if b.Ready() {
			stats.Ready++
		}
		stats.Drawn += b.Render(cam, render.Identity())
	}
	e.frames.Add(1)
	return stats
}

// Bounds возвращает вертикальные границы мира. Берёт запись: пересчёт
// кэша границ изменяет сетку.
func (e *Engine) Bounds() (minZ, maxZ int32, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	minZ, ok = e.grid.MinZ()
	maxZ, _ = e.grid.MaxZ()
	return minZ, maxZ, ok
}

// RunView - серия колонки для внешнего представления
type RunView struct {
	Boundary int32  `json:"boundary"`
	Block    string `json:"block,omitempty"`
	Present  bool   `json:"present"`
}

// ColumnRuns возвращает серии колонки; false - колонки нет
func (e *Engine) ColumnRuns(x, y int) ([]RunView, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c := e.grid.Lookup(x, y)
	if c == nil {
		return nil, false
	}
	runs := make([]RunView, 0, c.Len())
	for r := range c.Runs() {
		v := RunView{Boundary: r.Boundary, Present: r.Present}
		if r.Present {
			v.Block = r.Value.Name()
		}
		runs = append(runs, v)
	}
	return runs, true
}

// Cell возвращает блок ячейки; false - воздух
func (e *Engine) Cell(x, y int, z int32) (block.BlockID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.grid.Get(x, y, z)
}

// MeshStats - сводка по пакетам
type MeshStats struct {
	Batches int                 `json:"batches"`
	Ready   int                 `json:"ready"`
	Quads   map[string]int      `json:"quads"`
	Pending int                 `json:"pending_tasks"`
	Frames  uint64              `json:"frames"`
	Device  *render.MemoryStats `json:"device,omitempty"`
}

// MeshStats возвращает сводку по текущим пакетам
func (e *Engine) MeshStats() MeshStats {
	e.batchMu.Lock()
	batches := e.batches
	e.batchMu.Unlock()

	s := MeshStats{
		Batches: len(batches),
		Quads:   make(map[string]int, len(mesher.Directions)),
		Pending: e.queue.Pending(),
		Frames:  e.frames.Load(),
	}
	for _, dir := range mesher.Directions {
		s.Quads[dir.String()] = 0
	}
	for _, b := range batches {
		if b.Ready() {
			s.Ready++
		}
		for _, dir := range mesher.Directions {
			s.Quads[dir.String()] += b.Count(dir)
		}
	}
	if md, ok := e.device.(*render.MemoryDevice); ok {
		ds := md.Stats()
		s.Device = &ds
	}
	return s
}

// Close освобождает пакеты и закрывает очередь контекста. Вызывается на
// потоке контекста после остановки кадров и перестроек. Ожидающие загрузки
// выполняются, затем буферы освобождаются сразу, минуя очередь.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}

	for e.queue.Pending() > 0 {
		e.queue.Drain()
	}

	e.batchMu.Lock()
	batches := e.batches
	e.batches = nil
	e.batchMu.Unlock()

	for _, b := range batches {
		b.ReleaseNow()
	}
	e.queue.Close()
}
