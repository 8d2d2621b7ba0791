package mesher

import (
	"github.com/annel0/voxel-engine/internal/vec"
	"gonum.org/v1/gonum/spatial/r3"
)

// Direction - одно из шести направлений грани
type Direction int

const (
	NegX Direction = iota
	PosX
	NegY
	PosY
	NegZ
	PosZ
)

// Directions перечисляет все направления в порядке пакетов
var Directions = [6]Direction{NegX, PosX, NegY, PosY, NegZ, PosZ}

// sideDirections - боковые направления, обрабатываемые слиянием колонок
var sideDirections = [4]Direction{NegX, PosX, NegY, PosY}

var offsets = [6]vec.Vec3{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}

// Оси, вдоль которых растягивается грань каждого направления
var (
	cornerAxis1 = [6]vec.Vec3{{Y: 1}, {Y: 1}, {X: 1}, {X: 1}, {X: 1}, {X: 1}}
	cornerAxis2 = [6]vec.Vec3{{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1}, {Y: 1}, {Y: 1}}
)

// Offset возвращает единичный сдвиг решётки вдоль нормали
func (d Direction) Offset() vec.Vec3 {
	return offsets[d]
}

// Normal возвращает нормаль как вектор
func (d Direction) Normal() r3.Vec {
	o := offsets[d]
	return r3.Vec{X: float64(o.X), Y: float64(o.Y), Z: float64(o.Z)}
}

// Positive истинно для +X, +Y, +Z
func (d Direction) Positive() bool {
	return d%2 == 1
}

func (d Direction) String() string {
	switch d {
	case NegX:
		return "-x"
	case PosX:
		return "+x"
	case NegY:
		return "-y"
	case PosY:
		return "+y"
	case NegZ:
		return "-z"
	case PosZ:
		return "+z"
	}
	return "unknown"
}

// Quad - единичная грань ячейки (X, Y, Z) со значением Value.
// Направление задаётся пакетом, в котором лежит грань.
type Quad[T any] struct {
	X, Y, Z int
	Value   T
}

// Corners возвращает четыре угла грани в координатах решётки.
// Ячейка (x, y, z) занимает куб [x, x+1]×[y, y+1]×[z, z+1].
func (q Quad[T]) Corners(dir Direction) [4]vec.Vec3 {
	pos := vec.Vec3{X: q.X, Y: q.Y, Z: q.Z}
	if dir.Positive() {
		pos = pos.Add(dir.Offset())
	}
	a1, a2 := cornerAxis1[dir], cornerAxis2[dir]
	return [4]vec.Vec3{pos, pos.Add(a1), pos.Add(a1).Add(a2), pos.Add(a2)}
}

// Faces - грани, разложенные по направлениям
type Faces[T any] [6][]Quad[T]

// Total возвращает общее число граней
func (f *Faces[T]) Total() int {
	n := 0
	for _, quads := range f {
		n += len(quads)
	}
	return n
}

// Bounds возвращает коробку решётки, охватывающую все ячейки с гранями:
// минимальные координаты и максимальные плюс один. false - граней нет.
func (f *Faces[T]) Bounds() (r3.Box, bool) {
	var lo, hi vec.Vec3
	found := false
	for _, quads := range f {
		for _, q := range quads {
			if !found {
				lo = vec.Vec3{X: q.X, Y: q.Y, Z: q.Z}
				hi = lo
				found = true
				continue
			}
			lo.X, hi.X = min(lo.X, q.X), max(hi.X, q.X)
			lo.Y, hi.Y = min(lo.Y, q.Y), max(hi.Y, q.Y)
			lo.Z, hi.Z = min(lo.Z, q.Z), max(hi.Z, q.Z)
		}
	}
	if !found {
		return r3.Box{}, false
	}
	return r3.Box{
		Min: r3.Vec{X: float64(lo.X), Y: float64(lo.Y), Z: float64(lo.Z)},
		Max: r3.Vec{X: float64(hi.X + 1), Y: float64(hi.Y + 1), Z: float64(hi.Z + 1)},
	}, true
}
