package rle

import (
	"math"
	"math/rand"
	"testing"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackBitsMSBFirst(t *testing.T) {
	packed := PackBits([]int{4, 8, 4}, []int{0xA, 0xBC, 0xD})
	assert.Equal(t, uint32(0xABCD), packed)
	assert.Equal(t, []int{0xA, 0xBC, 0xD}, UnpackBits([]int{4, 8, 4}, packed))

	// значения обрезаются по ширине поля
	assert.Equal(t, uint32(0x1F), PackBits([]int{4, 4}, []int{0x11, 0xF}))

	full := PackBits([]int{32}, []int{-1})
	assert.Equal(t, uint32(math.MaxUint32), full)
}

func TestPackBitsMisuse(t *testing.T) {
	assert.Panics(t, func() { PackBits([]int{4, 4}, []int{1}) })
	assert.Panics(t, func() { PackBits([]int{20, 20}, []int{1, 1}) })
	assert.Panics(t, func() { UnpackBits([]int{-1}, 0) })
}

func TestScalarCodec(t *testing.T) {
	var c ScalarCodec[uint16]
	assert.Equal(t, int32(0), c.EmptyCode())

	for _, v := range []uint16{0, 1, 2, 1000, math.MaxUint16} {
		code, err := c.Encode(v)
		require.NoError(t, err)
		assert.NotEqual(t, c.EmptyCode(), code)
		assert.Equal(t, v, c.Decode(code))
	}

	var wide ScalarCodec[int64]
	_, err := wide.Encode(-1)
	assert.ErrorIs(t, err, ErrValueOutOfRange)
	_, err = wide.Encode(math.MaxInt32)
	assert.ErrorIs(t, err, ErrValueOutOfRange)
	code, err := wide.Encode(math.MaxInt32 - 1)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), code)
}

func TestQuantizedCodecConstructors(t *testing.T) {
	_, err := NewVec2Codec(17)
	assert.Error(t, err)
	_, err = NewVec3Codec(11)
	assert.Error(t, err)
	_, err = NewVec3Codec(0)
	assert.Error(t, err)
}

func TestVec2CodecPrecision(t *testing.T) {
	for _, bits := range []int{4, 8, 16} {
		c, err := NewVec2Codec(bits)
		require.NoError(t, err)
		step := 1 / float64(int(1)<<bits-1)
		rng := rand.New(rand.NewSource(int64(bits)))

		for i := 0; i < 2000; i++ {
			v := vec.Vec2Float{X: rng.Float64()*1.4 - 0.2, Y: rng.Float64()*1.4 - 0.2}
			code, err := c.Encode(v)
			require.NoError(t, err)
			require.NotEqual(t, c.EmptyCode(), code)

			got := c.Decode(code)
			want := v.Clamp01()
			assert.LessOrEqual(t, math.Abs(got.X-want.X), step+1e-12)
			assert.LessOrEqual(t, math.Abs(got.Y-want.Y), step+1e-12)
		}
	}
}

func TestVec2CodecNeverProducesEmpty(t *testing.T) {
	c := DefaultVec2Codec()
	code, err := c.Encode(vec.Vec2Float{X: 1, Y: 1})
	require.NoError(t, err)
	assert.NotEqual(t, c.EmptyCode(), code)

	got := c.Decode(code)
	assert.Equal(t, 1.0, got.X)
	assert.InDelta(t, 1.0, got.Y, c.Step()+1e-12)

	code, _ = c.Encode(vec.Vec2Float{X: 5, Y: 5})
	assert.NotEqual(t, c.EmptyCode(), code, "значения за пределами отрезка обрезаются, а не становятся пустотой")
}

func TestVec3CodecPrecision(t *testing.T) {
	c := DefaultVec3Codec()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 2000; i++ {
		v := vec.Vec3Float{X: rng.Float64()*1.2 - 0.1, Y: rng.Float64(), Z: rng.Float64()*1.2 - 0.1}
		code, err := c.Encode(v)
		require.NoError(t, err)
		require.NotEqual(t, c.EmptyCode(), code)

		got, want := c.Decode(code), v.Clamp01()
		assert.InDelta(t, want.X, got.X, c.Step())
		assert.InDelta(t, want.Y, got.Y, c.Step())
		assert.InDelta(t, want.Z, got.Z, c.Step())
	}

	code, _ := c.Encode(vec.Vec3Float{X: 1, Y: 1, Z: 1})
	assert.Equal(t, vec.Vec3Float{X: 1, Y: 1, Z: 1}, c.Decode(code), "30 бит не пересекаются с пустым кодом")
}

func TestQuantizedValuesSurviveColumn(t *testing.T) {
	c := NewColumn[vec.Vec3Float](0, 0, DefaultVec3Codec())
	v := vec.Vec3Float{X: 0.25, Y: 0.5, Z: 0.75}
	require.NoError(t, c.SetRange(0, 4, v))

	got, ok := c.Get(2)
	require.True(t, ok)
	assert.InDelta(t, v.X, got.X, 1e-3)
	assert.True(t, c.RangeEquals(1, 4, got), "декодированное значение кодируется в тот же код")
}
