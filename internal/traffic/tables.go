package traffic

// Tables holds the static congestion multipliers and postal-code lookup
// data. They are built once at startup and passed into the model by
// reference, so tests can substitute their own.
type Tables struct {
	// CityBaseFactors maps a detected city to its base congestion factor
	// (1.0 = free flow). "default" and "tier3" are fallback entries.
	CityBaseFactors map[string]float64

	// HourlyFactors holds one multiplier per hour of day (0-23).
	HourlyFactors [24]float64

	// DayFactors holds one multiplier per day of week (0 = Monday).
	DayFactors [7]float64

	SeasonFactors   map[string]float64
	AreaTypeFactors map[string]float64

	// PincodeCityMap maps a 3-digit pincode prefix to a city label.
	PincodeCityMap map[string]string

	// CBDPincodes and CommercialPincodes list exact pincodes with a known
	// area classification.
	CBDPincodes        map[string]bool
	CommercialPincodes map[string]bool

	// AreaClassifier decides the area type for a pincode. The trailing-digit
	// heuristic used by default is rough, so it is a replaceable strategy.
	AreaClassifier func(t *Tables, pincode string) string

	// BlendThreshold is the learned-pattern confidence above which the
	// learned factor is used on its own instead of blended.
	BlendThreshold float64
}

// Factor bounds: congestion never speeds travel up, and is capped at a 70%
// slowdown.
const (
	MinFactor = 0.30
	MaxFactor = 1.0
)

// DefaultTables returns the multiplier tables tuned for Indian cities.
func DefaultTables() *Tables {
	return &Tables{
		CityBaseFactors: map[string]float64{
			// Metro cities (tier 1)
			"mumbai":    0.45,
			"bangalore": 0.50,
			"delhi":     0.52,
			"ncr":       0.52,
			"gurgaon":   0.48,
			"noida":     0.55,
			"pune":      0.58,
			"hyderabad": 0.60,
			"chennai":   0.58,
			"kolkata":   0.55,

			// Tier 2 cities
			"ahmedabad":     0.65,
			"jaipur":        0.68,
			"lucknow":       0.70,
			"kochi":         0.70,
			"coimbatore":    0.72,
			"indore":        0.72,
			"nagpur":        0.73,
			"surat":         0.70,
			"visakhapatnam": 0.72,
			"bhopal":        0.73,

			"tier3":   0.80,
			"default": 0.75,
		},
		HourlyFactors: [24]float64{
			0.95, 0.98, 0.99, 0.99, 0.98, 0.90, // 0-5: night, early deliveries
			0.80, 0.60, 0.50, 0.55, 0.70, 0.75, // 6-11: morning rush peaks at 8
			0.70, 0.75, 0.80, 0.75, 0.70, 0.60, // 12-17: lunch, afternoon, pre-evening
			0.50, 0.55, 0.60, 0.70, 0.80, 0.90, // 18-23: evening rush peaks at 18
		},
		DayFactors: [7]float64{
			0.95, // Monday
			0.93, // Tuesday
			0.92, // Wednesday
			0.93, // Thursday
			0.90, // Friday, worst weekday
			1.00, // Saturday
			1.05, // Sunday
		},
		SeasonFactors: map[string]float64{
			"monsoon":  0.75,
			"winter":   0.95,
			"summer":   0.90,
			"festival": 0.65,
		},
		AreaTypeFactors: map[string]float64{
			"cbd":         0.55,
			"commercial":  0.65,
			"residential": 0.80,
			"industrial":  0.75,
			"suburban":    0.85,
			"rural":       0.95,
		},
		PincodeCityMap: map[string]string{
			"110": "delhi", "111": "delhi", "112": "ncr",
			"121": "gurgaon", "122": "gurgaon",
			"201": "noida", "202": "noida",
			"400": "mumbai", "401": "mumbai", "421": "mumbai", "422": "mumbai",
			"560": "bangalore", "562": "bangalore",
			"600": "chennai", "601": "chennai",
			"500": "hyderabad", "501": "hyderabad",
			"411": "pune", "412": "pune",
			"380": "ahmedabad",
			"700": "kolkata", "711": "kolkata",
			"302": "jaipur",
			"682": "kochi",
			"641": "coimbatore",
			"226": "lucknow",
			"452": "indore",
			"440": "nagpur",
			"395": "surat",
			"530": "visakhapatnam",
			"462": "bhopal",
		},
		CBDPincodes: map[string]bool{
			"560001": true, "560002": true, "560009": true, // MG Road, Commercial St
			"110001": true, "110002": true, "110003": true, // Connaught Place
			"400001": true, "400021": true, "400051": true, // Fort, BKC
			"600001": true, "600002": true, // George Town
		},
		CommercialPincodes: map[string]bool{
			"560100": true, "560103": true, "560038": true, // Whitefield, Electronic City
		},
		AreaClassifier: TrailingDigitClassifier,
		BlendThreshold: 0.7,
	}
}
