package risk

import "math"

// RoundingMode selects how a raw unit count is quantized to the volume step.
type RoundingMode int

const (
	RoundDown RoundingMode = iota
	RoundNearest
)

// Inputs carries everything fixed-fractional sizing needs. The sizer consumes
// these values but does not own them; the broker's instrument and account
// info are the source of truth.
type Inputs struct {
	Balance          float64
	RiskPercent      float64
	StopDistancePips float64
	PipValuePerUnit  float64
	VolumeStep       float64
	VolumeMin        float64
	VolumeMax        float64
	Rounding         RoundingMode
}

// SizeVolume converts a stop distance and risk budget into a trade volume in
// units, quantized to the instrument's volume step and clamped to its
// maximum. It returns 0 when the inputs cannot produce a valid volume: a
// non-positive stop distance or pip value, or a quantized result below the
// instrument minimum. The zero return is a hard reject: callers must skip
// the trade rather than force the minimum volume, which would silently
// exceed the requested risk.
func SizeVolume(in Inputs) float64 {
	if in.StopDistancePips <= 0 || in.PipValuePerUnit <= 0 {
		return 0
	}

	riskAmount := in.Balance * (in.RiskPercent / 100.0)
	if riskAmount <= 0 {
		return 0
	}

	rawUnits := riskAmount / (in.StopDistancePips * in.PipValuePerUnit)
	volume := quantize(rawUnits, in.VolumeStep, in.Rounding)

	if in.VolumeMin > 0 && volume < in.VolumeMin {
		return 0
	}
	if in.VolumeMax > 0 && volume > in.VolumeMax {
		volume = in.VolumeMax
	}
	return volume
}

func quantize(units, step float64, mode RoundingMode) float64 {
	if step <= 0 {
		return units
	}
	steps := units / step
	switch mode {
	case RoundNearest:
		return math.Round(steps) * step
	default:
		return math.Floor(steps) * step
	}
}
