package traffic

import (
	"log/slog"
	"math"
	"strconv"
	"time"
)

// PatternKey identifies one learned traffic observation bucket.
type PatternKey struct {
	Pincode string
	Hour    int
	Day     int // 0 = Monday
}

// LearnedPattern is an empirical speed observation. Confidence grows with
// sample count and saturates at 10 samples.
type LearnedPattern struct {
	SpeedKmh   float64 `json:"speed_kmh"`
	Samples    int     `json:"samples"`
	Confidence float64 `json:"confidence"`
}

// baseSpeedKmh normalizes learned speeds into a factor.
const baseSpeedKmh = 30.0

// Metadata describes the traffic context behind one factor computation. It
// is derived fresh on every call and never persisted.
type Metadata struct {
	City                  string  `json:"city"`
	AreaType              string  `json:"area_type"`
	Season                string  `json:"season"`
	TrafficFactor         float64 `json:"traffic_factor"`
	TrafficCondition      string  `json:"traffic_condition"`
	SpeedReductionPercent float64 `json:"speed_reduction_percent"`
	DayOfWeek             string  `json:"day_of_week"`
	Hour                  int     `json:"hour"`
	HasLearnedData        bool    `json:"has_learned_data"`
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Model computes congestion factors from static tables, optionally blended
// with empirically learned speed data.
type Model struct {
	tables   *Tables
	patterns map[PatternKey]LearnedPattern
	logger   *slog.Logger
}

// NewModel creates a traffic model over the given tables.
func NewModel(tables *Tables, logger *slog.Logger) *Model {
	if tables == nil {
		tables = DefaultTables()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		tables:   tables,
		patterns: make(map[PatternKey]LearnedPattern),
		logger:   logger,
	}
}

// PatternCount returns the number of learned patterns in use.
func (m *Model) PatternCount() int { return len(m.patterns) }

// DetectCity resolves a pincode's leading 3 digits to a city label,
// returning "default" for anything unrecognized. Pure lookup, never fails.
func (m *Model) DetectCity(pincode string) string {
	if len(pincode) < 3 {
		return "default"
	}
	if city, ok := m.tables.PincodeCityMap[pincode[:3]]; ok {
		return city
	}
	return "default"
}

// DetectAreaType classifies a pincode's area via the configured strategy.
func (m *Model) DetectAreaType(pincode string) string {
	return m.tables.AreaClassifier(m.tables, pincode)
}

// TrailingDigitClassifier is the default area strategy: known CBD and
// commercial pincodes are classified directly; within a metro cluster, the
// numerically lowest pincodes are treated as more central.
func TrailingDigitClassifier(t *Tables, pincode string) string {
	if t.CBDPincodes[pincode] {
		return "cbd"
	}
	if t.CommercialPincodes[pincode] {
		return "commercial"
	}

	if len(pincode) < 3 {
		return "residential"
	}
	city := t.PincodeCityMap[pincode[:3]]
	switch city {
	case "mumbai", "delhi", "bangalore", "chennai", "kolkata":
	default:
		return "residential"
	}

	pincodeInt, err := strconv.Atoi(pincode)
	if err != nil {
		return "residential"
	}
	prefix, err := strconv.Atoi(pincode[:3])
	if err != nil {
		return "residential"
	}
	cityBase := prefix * 1000

	switch {
	case pincodeInt < cityBase+20:
		return "commercial"
	case pincodeInt < cityBase+50:
		return "residential"
	default:
		return "suburban"
	}
}

// Season maps a calendar date to the Indian season bands.
func Season(date time.Time) string {
	switch date.Month() {
	case time.June, time.July, time.August, time.September:
		return "monsoon"
	case time.October, time.November, time.December, time.January, time.February:
		return "winter"
	default:
		return "summer"
	}
}

// Factor computes the congestion factor for a location and moment, always
// within [MinFactor, MaxFactor]. A high-confidence learned pattern wins
// outright; a partial one is blended linearly against the default product
// of the five static multipliers.
func (m *Model) Factor(pincode string, hour, dayOfWeek int, date time.Time) float64 {
	confidence := 0.0
	learned := 0.0

	if p, ok := m.patterns[PatternKey{Pincode: pincode, Hour: hour, Day: dayOfWeek}]; ok {
		confidence = p.Confidence
		learned = clampFactor(p.SpeedKmh / baseSpeedKmh)
		if confidence > m.tables.BlendThreshold {
			return learned
		}
	}

	defaultFactor := m.defaultFactor(pincode, hour, dayOfWeek, date)

	final := defaultFactor
	if confidence > 0 {
		final = learned*confidence + defaultFactor*(1-confidence)
	}
	return clampFactor(final)
}

func (m *Model) defaultFactor(pincode string, hour, dayOfWeek int, date time.Time) float64 {
	city := m.DetectCity(pincode)
	cityFactor, ok := m.tables.CityBaseFactors[city]
	if !ok {
		cityFactor = m.tables.CityBaseFactors["default"]
	}

	// out-of-range hour/day fall back to a neutral multiplier
	hourFactor := 1.0
	if hour >= 0 && hour < len(m.tables.HourlyFactors) {
		hourFactor = m.tables.HourlyFactors[hour]
	}
	dayFactor := 1.0
	if dayOfWeek >= 0 && dayOfWeek < len(m.tables.DayFactors) {
		dayFactor = m.tables.DayFactors[dayOfWeek]
	}

	areaFactor, ok := m.tables.AreaTypeFactors[m.DetectAreaType(pincode)]
	if !ok {
		areaFactor = 0.80
	}
	seasonFactor, ok := m.tables.SeasonFactors[Season(date)]
	if !ok {
		seasonFactor = 1.0
	}

	return clampFactor(cityFactor * hourFactor * dayFactor * areaFactor * seasonFactor)
}

func clampFactor(f float64) float64 {
	if f < MinFactor {
		return MinFactor
	}
	if f > MaxFactor {
		return MaxFactor
	}
	return f
}

// AdjustDistance shrinks a requested distance band so the polygon keeps
// equal travel time under congestion. Rounded to 2 decimals.
func (m *Model) AdjustDistance(distanceKm float64, pincode string, hour, dayOfWeek int, date time.Time) float64 {
	factor := m.Factor(pincode, hour, dayOfWeek, date)
	return math.Round(distanceKm*factor*100) / 100
}

// AdjustTime inflates a requested time budget so the zone keeps equal
// coverage area under congestion.
func (m *Model) AdjustTime(timeMinutes int, pincode string, hour, dayOfWeek int, date time.Time) int {
	factor := m.Factor(pincode, hour, dayOfWeek, date)
	if factor <= 0 {
		return timeMinutes * 2
	}
	return int(math.Round(float64(timeMinutes) / factor))
}

// Metadata returns the full traffic context for provenance tagging.
func (m *Model) Metadata(pincode string, hour, dayOfWeek int, date time.Time) Metadata {
	factor := m.Factor(pincode, hour, dayOfWeek, date)

	condition := "Very Heavy"
	switch {
	case factor >= 0.85:
		condition = "Light"
	case factor >= 0.70:
		condition = "Moderate"
	case factor >= 0.55:
		condition = "Heavy"
	}

	day := "unknown"
	if dayOfWeek >= 0 && dayOfWeek < len(dayNames) {
		day = dayNames[dayOfWeek]
	}

	_, hasLearned := m.patterns[PatternKey{Pincode: pincode, Hour: hour, Day: dayOfWeek}]

	return Metadata{
		City:                  m.DetectCity(pincode),
		AreaType:              m.DetectAreaType(pincode),
		Season:                Season(date),
		TrafficFactor:         math.Round(factor*1000) / 1000,
		TrafficCondition:      condition,
		SpeedReductionPercent: math.Round((1-factor)*1000) / 10,
		DayOfWeek:             day,
		Hour:                  hour,
		HasLearnedData:        hasLearned,
	}
}
