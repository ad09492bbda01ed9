package geoutil

import "math"

// Precision is the number of decimals kept when persisting coordinates.
// Seven decimals of a degree is roughly a centimeter on the ground.
const Precision = 7

func RoundCoord(x, y float64) (float64, float64) {
	return roundFloat(x, Precision), roundFloat(y, Precision)
}

func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
