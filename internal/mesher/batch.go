package mesher

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/render"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrFaceDataSize - FaceData вернул данные, не совпадающие с Layout
var ErrFaceDataSize = errors.New("размер данных грани не совпадает с раскладкой вершины")

// FaceDataFunc возвращает атрибуты вершины одной грани. Длина результата
// должна равняться сумме Layout.
type FaceDataFunc[T any] func(q Quad[T], dir Direction) []float32

// BuildOptions - параметры построения пакета
type BuildOptions[T any] struct {
	// Layout - размеры атрибутов вершины (например, {3, 3} - позиция и цвет)
	Layout   []int
	FaceData FaceDataFunc[T]
	Device   render.Device
	// Runner выполняет загрузку на потоке контекста. nil - загрузка сразу,
	// вызывающий сам владеет контекстом.
	Runner  render.ContextRunner
	Metrics *Metrics
	Logger  *logging.Logger
}

// Batch - грани одного участка, разложенные по шести буферам.
// Рисуется только после завершения всех шести загрузок.
type Batch[T any] struct {
	id      uuid.UUID
	layout  []int
	counts  [6]int
	bounds  r3.Box
	visible bool

	buffers  [6]render.Buffer
	uploaded atomic.Int32

	runner  render.ContextRunner
	metrics *Metrics
}

// PositionLayout - раскладка по умолчанию: только позиция грани
var PositionLayout = []int{3}

// PositionData кладёт в вершину координаты ячейки грани
func PositionData[T any](q Quad[T], _ Direction) []float32 {
	return []float32{float32(q.X), float32(q.Y), float32(q.Z)}
}

// Build извлекает грани footprint и ставит шесть загрузок в очередь
// контекста. Возвращается сразу; готовность проверяется через Ready.
func Build[T any](src ColumnSource[T], footprint []vec.Vec2, opts BuildOptions[T]) (*Batch[T], error) {
	if opts.Device == nil {
		return nil, errors.New("не задано графическое устройство")
	}
	layout := opts.Layout
	if layout == nil {
		layout = PositionLayout
	}
	faceData := opts.FaceData
	if faceData == nil {
		faceData = PositionData[T]
	}
	stride := 0
	for _, n := range layout {
		stride += n
	}

	start := time.Now()
	faces := ExtractQuads(src, footprint)

	b := &Batch[T]{
		id:      uuid.New(),
		layout:  layout,
		runner:  opts.Runner,
		metrics: opts.Metrics,
	}
	b.bounds, b.visible = faces.Bounds()

	var data [6][]float32
	for _, dir := range Directions {
		quads := faces[dir]
		buf := make([]float32, 0, len(quads)*stride)
		for _, q := range quads {
			d := faceData(q, dir)
			if len(d) != stride {
				return nil, fmt.Errorf("%w: %d вместо %d для %s", ErrFaceDataSize, len(d), stride, dir)
			}
			buf = append(buf, d...)
		}
		data[dir] = buf
		b.counts[dir] = len(quads)
	}
	b.metrics.observeBuild(b.counts, time.Since(start))

	for _, dir := range Directions {
		dir, d := dir, data[dir]
		b.onContext(func() {
			buf := opts.Device.NewBuffer()
			buf.Upload(d)
			b.buffers[dir] = buf
			b.uploaded.Add(1)
			b.metrics.uploadDone()
		})
	}

	if opts.Logger != nil {
		opts.Logger.Debug("Пакет %s: %d граней, %d колонок", b.id, faces.Total(), len(footprint))
	}
	return b, nil
}

func (b *Batch[T]) onContext(task func()) {
	if b.runner == nil {
		task()
		return
	}
	b.runner.RunOnContext(task)
}

// ID возвращает идентификатор пакета
func (b *Batch[T]) ID() uuid.UUID { return b.id }

// Ready истинно, когда все шесть буферов загружены
func (b *Batch[T]) Ready() bool {
	return b.uploaded.Load() == int32(len(Directions))
}

// Count возвращает число граней направления
func (b *Batch[T]) Count(dir Direction) int { return b.counts[dir] }

// Counts возвращает число граней по всем направлениям
func (b *Batch[T]) Counts() [6]int { return b.counts }

// Bounds возвращает коробку пакета; false - пакет пуст
func (b *Batch[T]) Bounds() (r3.Box, bool) { return b.bounds, b.visible }

// Render рисует видимые направления и возвращает их число.
// Вызывается на потоке контекста. model переводит решётку в мир.
func (b *Batch[T]) Render(cam render.Camera, model render.Affine) int {
	if !b.Ready() {
		b.metrics.drawSkipped()
		return 0
	}
	if !b.visible {
		return 0
	}

	lo, hi := model.Apply(b.bounds.Min), model.Apply(b.bounds.Max)
	world := r3.Box{
		Min: r3.Vec{X: min(lo.X, hi.X), Y: min(lo.Y, hi.Y), Z: min(lo.Z, hi.Z)},
		Max: r3.Vec{X: max(lo.X, hi.X), Y: max(lo.Y, hi.Y), Z: max(lo.Z, hi.Z)},
	}
	if !cam.IntersectsBox(world) {
		return 0
	}

	view := model.Then(cam.View())
	vMin, vMax := view.Apply(b.bounds.Min), view.Apply(b.bounds.Max)
	drawn := 0
	for _, dir := range Directions {
		if b.counts[dir] == 0 {
			continue
		}
		n := view.ApplyDir(dir.Normal())
		if r3.Dot(vMin, n) >= 0 && r3.Dot(vMax, n) >= 0 {
			continue
		}
		b.buffers[dir].Draw(b.layout, b.counts[dir])
		drawn++
	}
	return drawn
}

// Release освобождает буферы на потоке контекста. Вызывать после
// готовности пакета: незавершённые загрузки не отменяются.
func (b *Batch[T]) Release() {
	b.onContext(b.free)
}

// ReleaseNow освобождает буферы сразу, без очереди. Вызывается только на
// потоке контекста; загрузки, ещё стоящие в очереди, создадут буферы позже.
func (b *Batch[T]) ReleaseNow() {
	b.free()
}

func (b *Batch[T]) free() {
	for i, buf := range b.buffers {
		if buf != nil {
			buf.Release()
			b.buffers[i] = nil
		}
	}
}
