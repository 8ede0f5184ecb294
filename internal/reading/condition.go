package reading

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Label returns the banner text shown by the dashboard.
func (c Condition) Label() string {
	switch c {
	case ConditionClear:
		return "Clear"
	case ConditionCloudy:
		return "Cloudy / overcast"
	case ConditionRain:
		return "Rain likely"
	case ConditionStorm:
		return "Heavy rain likely"
	case ConditionMist:
		return "Misty"
	default:
		return "Waiting for sensor data"
	}
}

// Thresholds tune Classify. The light value is the raw analog reading of the
// sensor's LDR, higher means brighter.
type Thresholds struct {
	RainIndex    float64 // imcs at or above this means rain is likely
	StormIndex   float64
	MistHumidity float64
	DimLight     float64
}

// DefaultThresholds match the hint shown next to the rain index on the
// dashboards: an index above 1.0 means a high chance of rain.
var DefaultThresholds = Thresholds{
	RainIndex:    1.0,
	StormIndex:   2.0,
	MistHumidity: 95,
	DimLight:     1500,
}

// Classify maps a reading onto a Condition using DefaultThresholds.
func Classify(r Reading) Condition {
	return DefaultThresholds.Classify(r)
}

// Classify maps a reading onto a Condition. Readings carrying none of the
// rain index, humidity or light fields are ConditionUnknown.
func (t Thresholds) Classify(r Reading) Condition {
	idx, hasIdx := r.Float(FieldRainIndex)
	hum, hasHum := r.Float(FieldHumidity)
	light, hasLight := r.Float(FieldLight)

	switch {
	case hasIdx && idx >= t.StormIndex:
		return ConditionStorm
	case hasIdx && idx >= t.RainIndex:
		return ConditionRain
	case hasHum && hum >= t.MistHumidity:
		return ConditionMist
	case hasLight && light < t.DimLight:
		return ConditionCloudy
	case hasIdx || hasHum || hasLight:
		return ConditionClear
	default:
		return ConditionUnknown
	}
}
