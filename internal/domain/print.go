package domain

import "math"

// Orientation rotates the model (degrees) about X then Y before its
// bounding box is measured.
type Orientation struct {
	RotationX float64 `json:"rotation_x"`
	RotationY float64 `json:"rotation_y"`
}

func (o Orientation) Valid() bool {
	for _, v := range []float64{o.RotationX, o.RotationY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PrintConfiguration is what the customer picks for a loaded model.
type PrintConfiguration struct {
	Scale             float64     `json:"scale"`
	QualityID         string      `json:"quality"`
	QualityMultiplier float64     `json:"quality_multiplier"`
	InfillPct         int         `json:"infill"`
	Material          string      `json:"material"`
	Color             string      `json:"color"`
	Orientation       Orientation `json:"orientation"`
}

// QuoteEstimate is derived from (ModelMetrics, PrintConfiguration) and never
// stored on its own.
type QuoteEstimate struct {
	ScaledVolumeCm3 float64    `json:"scaled_volume"`
	ScaledDims      Dimensions `json:"scaled_dimensions"`
	Price           int        `json:"estimated_price"`
	Hours           float64    `json:"estimated_hours"`
	Time            string     `json:"estimated_time"`
}
