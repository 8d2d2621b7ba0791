package mesher

import (
	"math/rand"
	"testing"

	"github.com/annel0/voxel-engine/internal/rle"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cell struct {
	dir     Direction
	x, y, z int
	value   int
}

func quadSet(faces Faces[int]) map[cell]int {
	out := make(map[cell]int)
	for _, dir := range Directions {
		for _, q := range faces[dir] {
			out[cell{dir, q.X, q.Y, q.Z, q.Value}]++
		}
	}
	return out
}

func newGrid() *rle.MapGrid[int] {
	return rle.NewMapGrid[int](rle.ScalarCodec[int]{})
}

func TestSideFacesAgainstEmptyNeighbour(t *testing.T) {
	g := newGrid()
	require.NoError(t, g.SetRange(0, 0, 1, 10, 7))
	// соседняя колонка существует, но пуста
	require.NoError(t, g.EraseRange(1, 0, -5, 20))

	faces := ExtractQuads[int](g, []vec.Vec2{{X: 0, Y: 0}})
	require.Len(t, faces[PosX], 10)
	for i, q := range faces[PosX] {
		assert.Equal(t, Quad[int]{X: 0, Y: 0, Z: i + 1, Value: 7}, q)
	}

	// со стороны пустой колонки граней нет
	faces = ExtractQuads[int](g, []vec.Vec2{{X: 1, Y: 0}})
	assert.Zero(t, faces.Total())
}

func TestVerticalFaces(t *testing.T) {
	g := newGrid()
	require.NoError(t, g.SetRange(0, 0, 1, 3, 1))
	require.NoError(t, g.SetRange(0, 0, 6, 8, 2))

	faces := ExtractQuads[int](g, []vec.Vec2{{X: 0, Y: 0}})
	assert.Equal(t, []Quad[int]{{Z: 1, Value: 1}, {Z: 6, Value: 2}}, faces[NegZ])
	assert.Equal(t, []Quad[int]{{Z: 3, Value: 1}, {Z: 8, Value: 2}}, faces[PosZ])
}

func TestAdjacentValuesHaveNoVerticalFace(t *testing.T) {
	g := newGrid()
	require.NoError(t, g.SetRange(0, 0, 1, 3, 1))
	require.NoError(t, g.SetRange(0, 0, 4, 5, 2))

	faces := ExtractQuads[int](g, []vec.Vec2{{X: 0, Y: 0}})
	assert.Len(t, faces[NegZ], 1)
	assert.Len(t, faces[PosZ], 1)
	assert.Equal(t, 5, faces[PosZ][0].Z)
}

func TestSideFacesPartialOverlap(t *testing.T) {
	g := newGrid()
	require.NoError(t, g.SetRange(0, 0, 1, 10, 1))
	require.NoError(t, g.SetRange(0, 1, 4, 6, 3))

	faces := ExtractQuads[int](g, []vec.Vec2{{X: 0, Y: 0}})
	var zs []int
	for _, q := range faces[PosY] {
		zs = append(zs, q.Z)
	}
	assert.Equal(t, []int{1, 2, 3, 7, 8, 9, 10}, zs)
	assert.Len(t, faces[NegY], 10)
}

func TestMissingColumnIsEmpty(t *testing.T) {
	g := rle.NewArrayGrid[int](4, rle.ScalarCodec[int]{})
	require.NoError(t, g.SetRange(3, 3, 0, 1, 5))

	// (-1, 0) и (9, 9) вне сетки: не ошибка, просто пусто
	faces := ExtractQuads[int](g, []vec.Vec2{{X: -1, Y: 0}, {X: 9, Y: 9}})
	assert.Zero(t, faces.Total())

	faces = ExtractQuads[int](g, []vec.Vec2{{X: 3, Y: 3}})
	assert.Len(t, faces[PosX], 2)
	assert.Len(t, faces[PosY], 2)
}

// Совпадение с поклеточной проверкой: грань есть ровно там, где заполненная
// ячейка граничит с пустой.
func TestExtractMatchesCellScan(t *testing.T) {
	const size, zLo, zHi = 4, 1, 12
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 30; round++ {
		g := newGrid()
		for i := 0; i < 20; i++ {
			x, y := rng.Intn(size), rng.Intn(size)
			a := int32(zLo + rng.Intn(zHi-zLo))
			b := a + int32(rng.Intn(4))
			if rng.Intn(4) == 0 {
				require.NoError(t, g.EraseRange(x, y, a, b))
			} else {
				require.NoError(t, g.SetRange(x, y, a, b, 1+rng.Intn(3)))
			}
		}

		var footprint []vec.Vec2
		for x := 0; x < size; x++ {
			for y := 0; y < size; y++ {
				footprint = append(footprint, vec.Vec2{X: x, Y: y})
			}
		}

		want := make(map[cell]int)
		for _, p := range footprint {
			for z := zLo - 2; z <= zHi+4; z++ {
				v, ok := g.Get(p.X, p.Y, int32(z))
				if !ok {
					continue
				}
				for _, dir := range Directions {
					o := dir.Offset()
					if _, filled := g.Get(p.X+o.X, p.Y+o.Y, int32(z+o.Z)); !filled {
						want[cell{dir, p.X, p.Y, z, v}]++
					}
				}
			}
		}

		got := quadSet(ExtractQuads[int](g, footprint))
		require.Equal(t, want, got, "раунд %d", round)
	}
}

func TestFacesBounds(t *testing.T) {
	var empty Faces[int]
	_, ok := empty.Bounds()
	assert.False(t, ok)

	g := newGrid()
	require.NoError(t, g.SetRange(2, 3, 1, 4, 1))
	require.NoError(t, g.Set(5, -1, -2, 1))
	faces := ExtractQuads[int](g, []vec.Vec2{{X: 2, Y: 3}, {X: 5, Y: -1}})

	box, ok := faces.Bounds()
	require.True(t, ok)
	assert.Equal(t, 2.0, box.Min.X)
	assert.Equal(t, -1.0, box.Min.Y)
	assert.Equal(t, -2.0, box.Min.Z)
	assert.Equal(t, 6.0, box.Max.X)
	assert.Equal(t, 4.0, box.Max.Y)
	assert.Equal(t, 5.0, box.Max.Z)
}

func TestQuadCorners(t *testing.T) {
	q := Quad[int]{X: 1, Y: 2, Z: 3}

	top := q.Corners(PosZ)
	for _, c := range top {
		assert.Equal(t, 4, c.Z)
	}
	assert.Equal(t, vec.Vec3{X: 1, Y: 2, Z: 4}, top[0])
	assert.Equal(t, vec.Vec3{X: 2, Y: 3, Z: 4}, top[2])

	west := q.Corners(NegX)
	for _, c := range west {
		assert.Equal(t, 1, c.X)
	}
	east := q.Corners(PosX)
	for _, c := range east {
		assert.Equal(t, 2, c.X)
	}
}

func TestDirectionTable(t *testing.T) {
	for _, dir := range Directions {
		o := dir.Offset()
		assert.Equal(t, 1, abs(o.X)+abs(o.Y)+abs(o.Z), dir.String())
		assert.Equal(t, dir.Positive(), o.X+o.Y+o.Z > 0, dir.String())
	}
	assert.Equal(t, "+z", PosZ.String())
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
