package vec

// Vec3 - целочисленная точка решётки
type Vec3 struct {
	X, Y, Z int
}

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X, Y, Z float64
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Clamp01 ограничивает каждую ось отрезком [0, 1]
func (v Vec3Float) Clamp01() Vec3Float {
	return Vec3Float{X: Clamp(v.X, 0, 1), Y: Clamp(v.Y, 0, 1), Z: Clamp(v.Z, 0, 1)}
}
