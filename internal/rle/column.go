package rle

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"
)

var (
	// ErrEmptyColumn - запрос границ у колонки без серий
	ErrEmptyColumn = errors.New("колонка пуста")
	// ErrInvalidRange - нижняя граница диапазона больше верхней
	ErrInvalidRange = errors.New("некорректный диапазон")
	// ErrCorruptColumn - слова колонки нарушают порядок или слияние серий
	ErrCorruptColumn = errors.New("повреждённые данные колонки")
)

// Run - одна серия колонки: полуинтервал (предыдущая граница, Boundary]
// со значением Value. Present=false означает пустоту.
type Run[T any] struct {
	Boundary int32
	Value    T
	Present  bool
}

// Column - вертикальная линия сетки (x, y), хранимая как отсортированный
// массив упакованных слов. Каждое слово - пара (граница, код значения):
// граница в младших 32 битах, код в старших.
//
// Серия (b[i-1], b[i]] имеет значение i-го слова; первая серия продолжается
// до минус бесконечности, выше последней границы колонка пуста.
// Соседние слова никогда не несут одинаковый код.
//
// Каждое изменение строит новый массив, поэтому итератор, полученный до
// изменения, видит прежнее состояние. Блокировок нет: один писатель и
// отсутствие одновременных читателей обеспечивает вызывающий.
type Column[T any] struct {
	x, y  int
	codec Codec[T]
	data  []uint64
}

// NewColumn создаёт пустую колонку с координатами (x, y)
func NewColumn[T any](x, y int, codec Codec[T]) *Column[T] {
	return &Column[T]{x: x, y: y, codec: codec}
}

// X возвращает координату x колонки
func (c *Column[T]) X() int { return c.x }

// Y возвращает координату y колонки
func (c *Column[T]) Y() int { return c.y }

// Len возвращает число хранимых серий
func (c *Column[T]) Len() int { return len(c.data) }

// IsEmpty сообщает, что в колонке нет ни одной границы
func (c *Column[T]) IsEmpty() bool { return len(c.data) == 0 }

func makeWord(boundary, code int32) uint64 {
	return uint64(uint32(boundary)) | uint64(uint32(code))<<32
}

func wordBoundary(w uint64) int32 { return int32(uint32(w)) }

func wordCode(w uint64) int32 { return int32(uint32(w >> 32)) }

// lowerBound - индекс первого слова с границей >= z (len, если таких нет)
func lowerBound(data []uint64, z int32) int {
	return sort.Search(len(data), func(i int) bool {
		return wordBoundary(data[i]) >= z
	})
}

func (c *Column[T]) codeAt(data []uint64, z int32) int32 {
	i := lowerBound(data, z)
	if i == len(data) {
		return c.codec.EmptyCode()
	}
	return wordCode(data[i])
}

func (c *Column[T]) run(w uint64) Run[T] {
	r := Run[T]{Boundary: wordBoundary(w)}
	if code := wordCode(w); code != c.codec.EmptyCode() {
		r.Value = c.codec.Decode(code)
		r.Present = true
	}
	return r
}

// Get возвращает значение в точке z; false, если ячейка пуста
func (c *Column[T]) Get(z int32) (T, bool) {
	i := lowerBound(c.data, z)
	if i == len(c.data) {
		var zero T
		return zero, false
	}
	r := c.run(c.data[i])
	return r.Value, r.Present
}

// Set записывает значение в одну ячейку z
func (c *Column[T]) Set(z int32, v T) error {
	code, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	c.setCode(z, code)
	return nil
}

// Erase делает ячейку z пустой
func (c *Column[T]) Erase(z int32) {
	c.setCode(z, c.codec.EmptyCode())
}

// SetRange записывает значение во все ячейки zMin..zMax включительно
func (c *Column[T]) SetRange(zMin, zMax int32, v T) error {
	if zMin > zMax {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, zMin, zMax)
	}
	code, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	c.setRangeCode(zMin, zMax, code)
	return nil
}

// EraseRange очищает ячейки zMin..zMax включительно
func (c *Column[T]) EraseRange(zMin, zMax int32) error {
	if zMin > zMax {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, zMin, zMax)
	}
	c.setRangeCode(zMin, zMax, c.codec.EmptyCode())
	return nil
}

// SetRangeInfinite записывает значение во все ячейки z <= zMax
func (c *Column[T]) SetRangeInfinite(zMax int32, v T) error {
	code, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	c.setRangeInfiniteCode(zMax, code)
	return nil
}

// EraseRangeInfinite очищает все ячейки z <= zMax
func (c *Column[T]) EraseRangeInfinite(zMax int32) {
	c.setRangeInfiniteCode(zMax, c.codec.EmptyCode())
}

// RangeEquals истинно, если весь отрезок zMin..zMax лежит в одной серии
// со значением v. Используется, чтобы пропускать однородные участки.
func (c *Column[T]) RangeEquals(zMin, zMax int32, v T) bool {
	code, err := c.codec.Encode(v)
	if err != nil {
		return false
	}
	return c.rangeEqualsCode(zMin, zMax, code)
}

// RangeEmpty истинно, если весь отрезок zMin..zMax пуст и лежит в одной серии
func (c *Column[T]) RangeEmpty(zMin, zMax int32) bool {
	return c.rangeEqualsCode(zMin, zMax, c.codec.EmptyCode())
}

func (c *Column[T]) rangeEqualsCode(zMin, zMax, code int32) bool {
	i1 := lowerBound(c.data, zMin)
	i2 := lowerBound(c.data, zMax)
	if i1 != i2 {
		return false
	}
	if i2 == len(c.data) {
		return code == c.codec.EmptyCode()
	}
	return wordCode(c.data[i2]) == code
}

// MinBoundary возвращает наименьшую границу; пустая колонка - ошибка
func (c *Column[T]) MinBoundary() (int32, error) {
	if len(c.data) == 0 {
		return 0, fmt.Errorf("MinBoundary колонки (%d,%d): %w", c.x, c.y, ErrEmptyColumn)
	}
	return wordBoundary(c.data[0]), nil
}

// MaxBoundary возвращает наибольшую границу; пустая колонка - ошибка
func (c *Column[T]) MaxBoundary() (int32, error) {
	if len(c.data) == 0 {
		return 0, fmt.Errorf("MaxBoundary колонки (%d,%d): %w", c.x, c.y, ErrEmptyColumn)
	}
	return wordBoundary(c.data[len(c.data)-1]), nil
}

// Runs перечисляет серии по возрастанию границ. Последовательность
// отражает состояние на момент вызова Runs и может обходиться повторно.
func (c *Column[T]) Runs() iter.Seq[Run[T]] {
	data := c.data
	return func(yield func(Run[T]) bool) {
		for _, w := range data {
			if !yield(c.run(w)) {
				return
			}
		}
	}
}

// Words возвращает копию упакованных слов колонки
func (c *Column[T]) Words() []uint64 {
	out := make([]uint64, len(c.data))
	copy(out, c.data)
	return out
}

// LoadWords заменяет содержимое колонки словами, проверяя, что границы
// строго возрастают и соседние серии различны
func (c *Column[T]) LoadWords(words []uint64) error {
	for i := 1; i < len(words); i++ {
		if wordBoundary(words[i-1]) >= wordBoundary(words[i]) {
			return fmt.Errorf("%w: граница %d не больше предыдущей %d",
				ErrCorruptColumn, wordBoundary(words[i]), wordBoundary(words[i-1]))
		}
		if wordCode(words[i-1]) == wordCode(words[i]) {
			return fmt.Errorf("%w: соседние серии с одинаковым кодом на границе %d",
				ErrCorruptColumn, wordBoundary(words[i-1]))
		}
	}
	data := make([]uint64, len(words))
	copy(data, words)
	c.data = data
	return nil
}

func (c *Column[T]) setCode(z int32, code int32) {
	data := c.cloneData(2)
	if z != math.MinInt32 {
		data = put(data, z-1, c.codeAt(data, z-1))
	}
	data = put(data, z, code)
	c.data = merge(data)
}

func (c *Column[T]) setRangeCode(zMin, zMax int32, code int32) {
	if zMin == math.MinInt32 {
		c.setRangeInfiniteCode(zMax, code)
		return
	}
	data := c.cloneData(2)
	data = put(data, zMin-1, c.codeAt(data, zMin-1))
	lo := lowerBound(data, zMin)
	hi := lowerBound(data, zMax)
	data = append(data[:lo], data[hi:]...)
	data = put(data, zMax, code)
	c.data = merge(data)
}

func (c *Column[T]) setRangeInfiniteCode(zMax int32, code int32) {
	hi := lowerBound(c.data, zMax)
	data := make([]uint64, 0, len(c.data)-hi+1)
	data = append(data, c.data[hi:]...)
	data = put(data, zMax, code)
	c.data = merge(data)
}

func (c *Column[T]) cloneData(extra int) []uint64 {
	data := make([]uint64, len(c.data), len(c.data)+extra)
	copy(data, c.data)
	return data
}

// put вставляет или заменяет слово с границей z, сохраняя порядок
func put(data []uint64, z, code int32) []uint64 {
	i := lowerBound(data, z)
	w := makeWord(z, code)
	if i < len(data) && wordBoundary(data[i]) == z {
		data[i] = w
		return data
	}
	data = append(data, 0)
	copy(data[i+1:], data[i:])
	data[i] = w
	return data
}

// merge удаляет слова, чей код совпадает с кодом следующего сверху слова:
// такая граница ничего не разделяет
func merge(data []uint64) []uint64 {
	out := data[:0]
	for i, w := range data {
		if i+1 < len(data) && wordCode(data[i+1]) == wordCode(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}
