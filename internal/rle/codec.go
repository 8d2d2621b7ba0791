package rle

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/voxel-engine/internal/vec"
	"golang.org/x/exp/constraints"
)

// ErrValueOutOfRange возвращается кодеком, если значение не помещается в код
var ErrValueOutOfRange = errors.New("значение вне допустимого диапазона кодека")

// Codec переводит доменное значение ячейки в 32-битный код и обратно.
// Один код зарезервирован под пустоту (EmptyCode) и никогда не
// возвращается из Encode. Decode вызывается только для непустых кодов.
type Codec[T any] interface {
	Encode(v T) (int32, error)
	Decode(code int32) T
	EmptyCode() int32
}

// PackBits упаковывает значения в одно слово, начиная со старших бит:
// первое поле занимает самые старшие биты. Значения обрезаются по ширине поля.
// Несовпадение длин, отрицательная ширина или сумма ширин больше 32 -
// ошибка программиста, поэтому паника.
func PackBits(widths, values []int) uint32 {
	if len(widths) != len(values) {
		panic(fmt.Sprintf("rle: PackBits: %d ширин, но %d значений", len(widths), len(values)))
	}
	checkWidths(widths)

	var packed uint32
	for i, w := range widths {
		packed = packed<<uint(w) | uint32(values[i])&mask(w)
	}
	return packed
}

// UnpackBits обратна PackBits
func UnpackBits(widths []int, packed uint32) []int {
	total := checkWidths(widths)

	values := make([]int, len(widths))
	shift := total
	for i, w := range widths {
		shift -= w
		values[i] = int(packed >> uint(shift) & mask(w))
	}
	return values
}

func checkWidths(widths []int) int {
	total := 0
	for _, w := range widths {
		if w < 0 {
			panic(fmt.Sprintf("rle: отрицательная ширина поля %d", w))
		}
		total += w
	}
	if total > 32 {
		panic(fmt.Sprintf("rle: суммарная ширина полей %d больше 32", total))
	}
	return total
}

func mask(width int) uint32 {
	if width >= 32 {
		return math.MaxUint32
	}
	return 1<<uint(width) - 1
}

// ScalarCodec хранит целое значение со сдвигом на единицу, код 0 - пустота.
// Допустимы значения 0..MaxInt32-1.
type ScalarCodec[I constraints.Integer] struct{}

func (ScalarCodec[I]) Encode(v I) (int32, error) {
	if v < 0 || uint64(v) > math.MaxInt32-1 {
		return 0, fmt.Errorf("%w: %d", ErrValueOutOfRange, v)
	}
	return int32(v) + 1, nil
}

func (ScalarCodec[I]) Decode(code int32) I {
	return I(code - 1)
}

func (ScalarCodec[I]) EmptyCode() int32 {
	return 0
}

// quantizer - общая часть векторных кодеков: ось в [0,1] -> поле из bits бит
type quantizer struct {
	widths []int
	scale  float64
}

// quantizedEmpty - все 32 бита выставлены
const quantizedEmpty int32 = -1

func newQuantizer(axes, bits int) (quantizer, error) {
	if bits < 1 || axes*bits > 32 {
		return quantizer{}, fmt.Errorf("недопустимая точность %d бит на ось для %d осей", bits, axes)
	}
	widths := make([]int, axes)
	for i := range widths {
		widths[i] = bits
	}
	return quantizer{widths: widths, scale: float64(mask(bits))}, nil
}

func (q quantizer) encode(axes ...float64) int32 {
	fields := make([]int, len(axes))
	top := int(q.scale)
	saturated := true
	for i, a := range axes {
		fields[i] = int(math.Round(vec.Clamp(a, 0, 1) * q.scale))
		if fields[i] != top {
			saturated = false
		}
	}
	// При заполнении всех 32 бит код (max, ..., max) совпал бы с пустотой.
	if saturated && len(axes)*q.widths[0] == 32 {
		fields[len(fields)-1]--
	}
	return int32(PackBits(q.widths, fields))
}

func (q quantizer) decode(code int32) []float64 {
	fields := UnpackBits(q.widths, uint32(code))
	axes := make([]float64, len(fields))
	for i, f := range fields {
		axes[i] = float64(f) / q.scale
	}
	return axes
}

// Step возвращает шаг квантования по одной оси
func (q quantizer) Step() float64 {
	return 1 / q.scale
}

// Vec2Codec квантует двумерный вектор из [0,1]^2. Значения вне отрезка
// молча обрезаются; кодирование с потерями не более одного шага на ось.
type Vec2Codec struct {
	quantizer
}

// NewVec2Codec создаёт кодек с bits бит на ось (2*bits <= 32)
func NewVec2Codec(bits int) (Vec2Codec, error) {
	q, err := newQuantizer(2, bits)
	if err != nil {
		return Vec2Codec{}, err
	}
	return Vec2Codec{quantizer: q}, nil
}

// DefaultVec2Codec - 16 бит на ось
func DefaultVec2Codec() Vec2Codec {
	c, _ := NewVec2Codec(16)
	return c
}

func (c Vec2Codec) Encode(v vec.Vec2Float) (int32, error) {
	return c.encode(v.X, v.Y), nil
}

func (c Vec2Codec) Decode(code int32) vec.Vec2Float {
	a := c.decode(code)
	return vec.Vec2Float{X: a[0], Y: a[1]}
}

func (Vec2Codec) EmptyCode() int32 {
	return quantizedEmpty
}

// Vec3Codec квантует трёхмерный вектор из [0,1]^3
type Vec3Codec struct {
	quantizer
}

// NewVec3Codec создаёт кодек с bits бит на ось (3*bits <= 32)
func NewVec3Codec(bits int) (Vec3Codec, error) {
	q, err := newQuantizer(3, bits)
	if err != nil {
		return Vec3Codec{}, err
	}
	return Vec3Codec{quantizer: q}, nil
}

// DefaultVec3Codec - 10 бит на ось
func DefaultVec3Codec() Vec3Codec {
	c, _ := NewVec3Codec(10)
	return c
}

func (c Vec3Codec) Encode(v vec.Vec3Float) (int32, error) {
	return c.encode(v.X, v.Y, v.Z), nil
}

func (c Vec3Codec) Decode(code int32) vec.Vec3Float {
	a := c.decode(code)
	return vec.Vec3Float{X: a[0], Y: a[1], Z: a[2]}
}

func (Vec3Codec) EmptyCode() int32 {
	return quantizedEmpty
}
