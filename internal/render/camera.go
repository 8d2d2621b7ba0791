package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Affine - аффинное преобразование: p -> Linear*p + Offset
type Affine struct {
	Linear *r3.Mat
	Offset r3.Vec
}

// Identity возвращает тождественное преобразование
func Identity() Affine {
	return Affine{Linear: r3.NewMat([]float64{1, 0, 0, 0, 1, 0, 0, 0, 1})}
}

// Translation возвращает сдвиг на t
func Translation(t r3.Vec) Affine {
	a := Identity()
	a.Offset = t
	return a
}

// Apply преобразует точку
func (a Affine) Apply(p r3.Vec) r3.Vec {
	return r3.Add(a.Linear.MulVec(p), a.Offset)
}

// ApplyDir преобразует направление (без сдвига)
func (a Affine) ApplyDir(d r3.Vec) r3.Vec {
	return a.Linear.MulVec(d)
}

// Then возвращает преобразование «сначала a, затем b»
func (a Affine) Then(b Affine) Affine {
	val := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += b.Linear.At(i, k) * a.Linear.At(k, j)
			}
			val[3*i+j] = s
		}
	}
	return Affine{Linear: r3.NewMat(val), Offset: b.Apply(a.Offset)}
}

// Camera - то, что нужно извлечению граней от камеры: проверка
// пересечения коробки с пирамидой видимости и преобразование мир -> камера.
type Camera interface {
	IntersectsBox(box r3.Box) bool
	View() Affine
}

// PerspectiveCamera - перспективная камера, смотрящая из Eye в Target.
// В пространстве камеры взгляд направлен вдоль -Z.
type PerspectiveCamera struct {
	Eye, Target, Up r3.Vec
	FovY            float64 // радианы
	Aspect          float64
	Near, Far       float64
}

// View строит преобразование мир -> камера
func (c PerspectiveCamera) View() Affine {
	f := r3.Unit(r3.Sub(c.Target, c.Eye))
	s := r3.Unit(r3.Cross(f, c.Up))
	u := r3.Cross(s, f)
	linear := r3.NewMat([]float64{
		s.X, s.Y, s.Z,
		u.X, u.Y, u.Z,
		-f.X, -f.Y, -f.Z,
	})
	return Affine{Linear: linear, Offset: r3.Scale(-1, linear.MulVec(c.Eye))}
}

// IntersectsBox сообщает, что коробка хотя бы частично может попасть
// в пирамиду видимости. Коробка отбрасывается, если все восемь её углов
// лежат снаружи одной из шести плоскостей.
func (c PerspectiveCamera) IntersectsBox(box r3.Box) bool {
	view := c.View()
	tanY := math.Tan(c.FovY / 2)
	tanX := tanY * c.Aspect

	planes := []func(p r3.Vec) float64{
		func(p r3.Vec) float64 { return -p.Z - c.Near },
		func(p r3.Vec) float64 { return c.Far + p.Z },
		func(p r3.Vec) float64 { return -p.Z*tanX - p.X },
		func(p r3.Vec) float64 { return -p.Z*tanX + p.X },
		func(p r3.Vec) float64 { return -p.Z*tanY - p.Y },
		func(p r3.Vec) float64 { return -p.Z*tanY + p.Y },
	}

	corners := boxCorners(box)
	for i := range corners {
		corners[i] = view.Apply(corners[i])
	}
	for _, plane := range planes {
		outside := true
		for _, p := range corners {
			if plane(p) >= 0 {
				outside = false
				break
			}
		}
		if outside {
			return false
		}
	}
	return true
}

func boxCorners(b r3.Box) [8]r3.Vec {
	var out [8]r3.Vec
	for i := range out {
		p := b.Min
		if i&1 != 0 {
			p.X = b.Max.X
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		out[i] = p
	}
	return out
}
