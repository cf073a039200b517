package domain

import "math"

type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

func ParseAxis(s string) (Axis, bool) {
	switch Axis(s) {
	case AxisX, AxisY, AxisZ:
		return Axis(s), true
	}
	return "", false
}

// Dimensions are per-axis extents in centimeters.
type Dimensions struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (d Dimensions) Get(a Axis) float64 {
	switch a {
	case AxisX:
		return d.X
	case AxisY:
		return d.Y
	case AxisZ:
		return d.Z
	}
	return 0
}

func (d Dimensions) Scaled(s float64) Dimensions {
	return Dimensions{X: d.X * s, Y: d.Y * s, Z: d.Z * s}
}

// Rounded is for display only; pricing uses the full-precision values.
func (d Dimensions) Rounded() Dimensions {
	return Dimensions{X: Round2(d.X), Y: Round2(d.Y), Z: Round2(d.Z)}
}

// ModelMetrics is computed once per loaded mesh.
type ModelMetrics struct {
	VolumeCm3    float64    `json:"volume"`
	DimensionsCm Dimensions `json:"dimensions"`
}

func (m ModelMetrics) Rounded() ModelMetrics {
	return ModelMetrics{VolumeCm3: Round2(m.VolumeCm3), DimensionsCm: m.DimensionsCm.Rounded()}
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
