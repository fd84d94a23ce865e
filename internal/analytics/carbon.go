package analytics

import "math"

// Default emission factors. 0.5 kg CO2/kWh is the Indian grid average; the
// tree figure is annual absorption of one mature tree. Both are deployment
// configuration, overridable per region.
const (
	DefaultCO2PerKWh     = 0.5
	DefaultKgPerTreeYear = 21.77
)

// DefaultCarbonFactors returns the stock emission constants.
func DefaultCarbonFactors() CarbonFactors {
	return CarbonFactors{CO2PerKWh: DefaultCO2PerKWh, KgPerTreeYear: DefaultKgPerTreeYear}
}

// Footprint derives the carbon summary for a total consumption figure.
// CO2 is rounded to two decimals, tree equivalence to one, matching what the
// dashboard displays.
func Footprint(totalKWh float64, f CarbonFactors) CarbonFootprint {
	co2 := totalKWh * f.CO2PerKWh
	return CarbonFootprint{
		CO2Kg:           roundTo(co2, 2),
		TreesEquivalent: roundTo(co2/f.KgPerTreeYear, 1),
	}
}

func roundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
