package vec

// Vec2Float представляет 2D координаты с плавающей точкой
type Vec2Float struct {
	X, Y float64
}

// Clamp01 ограничивает каждую ось отрезком [0, 1]
func (v Vec2Float) Clamp01() Vec2Float {
	return Vec2Float{X: Clamp(v.X, 0, 1), Y: Clamp(v.Y, 0, 1)}
}

// Clamp ограничивает значение отрезком [lo, hi]. NaN превращается в lo.
func Clamp(x, lo, hi float64) float64 {
	if x >= hi {
		return hi
	}
	if x >= lo {
		return x
	}
	return lo
}
