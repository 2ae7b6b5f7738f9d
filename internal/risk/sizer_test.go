package risk

import "testing"

// TestSizeVolumeBasic tests the fixed-fractional calculation with step
// rounding down
func TestSizeVolumeBasic(t *testing.T) {
	volume := SizeVolume(Inputs{
		Balance:          10000,
		RiskPercent:      1,
		StopDistancePips: 30,
		PipValuePerUnit:  0.0001,
		VolumeStep:       1000,
		VolumeMin:        1000,
		Rounding:         RoundDown,
	})

	// riskAmount=100, rawUnits=100/(30*0.0001)=33333.33, floored to 33000.
	if volume != 33000 {
		t.Errorf("Expected 33000 units, got %v", volume)
	}
}

// TestSizeVolumeRoundNearest tests to-nearest quantization
func TestSizeVolumeRoundNearest(t *testing.T) {
	volume := SizeVolume(Inputs{
		Balance:          10000,
		RiskPercent:      1,
		StopDistancePips: 30,
		PipValuePerUnit:  0.0001,
		VolumeStep:       1000,
		VolumeMin:        1000,
		Rounding:         RoundNearest,
	})

	// rawUnits=33333.33 rounds to 33000 either way; use a case that differs.
	if volume != 33000 {
		t.Errorf("Expected 33000 units, got %v", volume)
	}

	volume = SizeVolume(Inputs{
		Balance:          10000,
		RiskPercent:      1,
		StopDistancePips: 17,
		PipValuePerUnit:  0.0001,
		VolumeStep:       1000,
		VolumeMin:        1000,
		Rounding:         RoundNearest,
	})
	// rawUnits=58823.5 -> nearest 59000; RoundDown would give 58000.
	if volume != 59000 {
		t.Errorf("Expected 59000 units, got %v", volume)
	}
}

// TestSizeVolumeRejects tests the zero-sentinel hard rejects
func TestSizeVolumeRejects(t *testing.T) {
	base := Inputs{
		Balance:          10000,
		RiskPercent:      1,
		StopDistancePips: 30,
		PipValuePerUnit:  0.0001,
		VolumeStep:       1000,
		VolumeMin:        1000,
	}

	in := base
	in.StopDistancePips = 0
	if v := SizeVolume(in); v != 0 {
		t.Errorf("Zero stop distance must reject, got %v", v)
	}

	in = base
	in.PipValuePerUnit = -1
	if v := SizeVolume(in); v != 0 {
		t.Errorf("Non-positive pip value must reject, got %v", v)
	}

	in = base
	in.Balance = 0
	if v := SizeVolume(in); v != 0 {
		t.Errorf("Zero balance must reject, got %v", v)
	}

	// Result below the instrument minimum is a reject, never a bump-up.
	in = base
	in.VolumeMin = 50000
	if v := SizeVolume(in); v != 0 {
		t.Errorf("Below-minimum volume must reject, got %v", v)
	}
}

// TestSizeVolumeClampsToMax tests the upper clamp
func TestSizeVolumeClampsToMax(t *testing.T) {
	volume := SizeVolume(Inputs{
		Balance:          1000000,
		RiskPercent:      5,
		StopDistancePips: 10,
		PipValuePerUnit:  0.0001,
		VolumeStep:       1000,
		VolumeMin:        1000,
		VolumeMax:        100000,
	})
	if volume != 100000 {
		t.Errorf("Expected clamp to 100000, got %v", volume)
	}
}

// TestSizeVolumeMonotonic tests that more risk never sizes smaller
func TestSizeVolumeMonotonic(t *testing.T) {
	prev := 0.0
	for pct := 0.5; pct <= 5; pct += 0.5 {
		v := SizeVolume(Inputs{
			Balance:          10000,
			RiskPercent:      pct,
			StopDistancePips: 30,
			PipValuePerUnit:  0.0001,
			VolumeStep:       1000,
			VolumeMin:        1000,
			Rounding:         RoundDown,
		})
		if v < prev {
			t.Errorf("Volume decreased from %v to %v at risk %v%%", prev, v, pct)
		}
		prev = v
	}
}

// TestSizeVolumeNoStep tests that a zero step passes raw units through
func TestSizeVolumeNoStep(t *testing.T) {
	volume := SizeVolume(Inputs{
		Balance:          10000,
		RiskPercent:      1,
		StopDistancePips: 20,
		PipValuePerUnit:  0.0001,
	})
	// rawUnits = 100 / 0.002 = 50000 exactly, no quantization.
	if volume != 50000 {
		t.Errorf("Expected 50000 units, got %v", volume)
	}
}
