package dto

import "time"

type CollectOutput struct {
	Elapsed          time.Duration
	Souls            float64
	Embers           float64
	TotalEmbers      float64
	AccumulatedSouls float64
	// Suppressed is set when a focus session blocked accrual.
	Suppressed bool
	Warning    string
}
