package render

import "sync"

// Buffer - буфер вершин на стороне GPU. Все методы вызываются только
// на потоке контекста.
type Buffer interface {
	Upload(data []float32)
	// Draw рисует count точек; layout - размеры атрибутов вершины
	Draw(layout []int, count int)
	Release()
}

// Device создаёт буферы в графическом контексте
type Device interface {
	NewBuffer() Buffer
}

// MemoryDevice - устройство без GPU: хранит загруженные данные и считает
// вызовы. Используется в безголовом режиме и в тестах.
type MemoryDevice struct {
	mu      sync.Mutex
	buffers []*MemoryBuffer
	uploads int
	draws   int
	points  int
}

// NewMemoryDevice создаёт пустое устройство
func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{}
}

func (d *MemoryDevice) NewBuffer() Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := &MemoryBuffer{device: d}
	d.buffers = append(d.buffers, b)
	return b
}

// MemoryStats - счётчики MemoryDevice
type MemoryStats struct {
	Buffers  int
	Released int
	Uploads  int
	Draws    int
	Points   int
}

// Stats возвращает снимок счётчиков
func (d *MemoryDevice) Stats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := MemoryStats{Buffers: len(d.buffers), Uploads: d.uploads, Draws: d.draws, Points: d.points}
	for _, b := range d.buffers {
		if b.released {
			s.Released++
		}
	}
	return s
}

// MemoryBuffer - буфер MemoryDevice
type MemoryBuffer struct {
	device   *MemoryDevice
	data     []float32
	released bool
}

func (b *MemoryBuffer) Upload(data []float32) {
	b.device.mu.Lock()
	defer b.device.mu.Unlock()

	b.data = append(b.data[:0], data...)
	b.device.uploads++
}

func (b *MemoryBuffer) Draw(layout []int, count int) {
	b.device.mu.Lock()
	defer b.device.mu.Unlock()

	b.device.draws++
	b.device.points += count
}

func (b *MemoryBuffer) Release() {
	b.device.mu.Lock()
	defer b.device.mu.Unlock()

	b.released = true
	b.data = nil
}

// Data возвращает копию загруженных данных
func (b *MemoryBuffer) Data() []float32 {
	b.device.mu.Lock()
	defer b.device.mu.Unlock()

	out := make([]float32, len(b.data))
	copy(out, b.data)
	return out
}
