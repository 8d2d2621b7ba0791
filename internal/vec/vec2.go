package vec

// Vec2 представляет 2D координаты колонки (x, y)
type Vec2 struct {
	X, Y int
}

// Tile возвращает координаты участка со стороной 1<<shift колонок,
// которому принадлежит колонка. Отрицательные координаты округляются вниз.
func (v Vec2) Tile(shift int) Vec2 {
	return Vec2{X: v.X >> shift, Y: v.Y >> shift}
}

// TileOrigin возвращает первую колонку участка v
func (v Vec2) TileOrigin(shift int) Vec2 {
	return Vec2{X: v.X << shift, Y: v.Y << shift}
}
