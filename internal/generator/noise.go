package generator

import (
	"github.com/aquilax/go-perlin"
)

// Noise - шум Перлина с фиксированным сидом, приведённый к [0, 1].
// Каждый генератор владеет своим экземпляром.
type Noise struct {
	p *perlin.Perlin
}

// NewNoise создаёт шум. alpha - сглаживание, beta - частота, octaves - число октав.
func NewNoise(alpha, beta float64, octaves int32, seed int64) *Noise {
	return &Noise{p: perlin.NewPerlin(alpha, beta, octaves, seed)}
}

// At возвращает значение шума в точке (от 0 до 1)
func (n *Noise) At(x, y float64) float64 {
	v := (n.p.Noise2D(x, y) + 1.0) / 2.0
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
