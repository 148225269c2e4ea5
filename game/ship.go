package game

// Ship Classes
type ShipClass int

const (
	ShipFighter ShipClass = iota
	ShipInterceptor
	ShipBomber
	ShipCruiser
	ShipCarrier
)

func (c ShipClass) String() string {
	if stats, ok := ShipData[c]; ok {
		return stats.Name
	}
	return "Unknown"
}

// ShipStats holds the baseline specifications for each ship class.
// These are the unmodified values an agent starts from; difficulty
// enhancement multipliers are applied against these, never against
// already-modified values.
type ShipStats struct {
	Name            string
	MaxHealth       float64
	Speed           float64 // units per second
	RotationSpeed   float64 // radians per second
	DetectionRange  float64
	AttackRange     float64
	Size            float64
	FireRate        float64 // shots per second
	ProjectileSpeed float64 // units per second
	Accuracy        float64 // base hit probability in [0,1]
	Value           float64 // tactical value used in support scoring
}

var ShipData = map[ShipClass]ShipStats{
	ShipFighter: {
		Name:            "Fighter",
		MaxHealth:       80,
		Speed:           130,
		RotationSpeed:   3.2,
		DetectionRange:  900,
		AttackRange:     320,
		Size:            9,
		FireRate:        2.5,
		ProjectileSpeed: 450,
		Accuracy:        0.55,
		Value:           1.0,
	},
	ShipInterceptor: {
		Name:            "Interceptor",
		MaxHealth:       110,
		Speed:           150,
		RotationSpeed:   3.6,
		DetectionRange:  1100,
		AttackRange:     360,
		Size:            11,
		FireRate:        3.0,
		ProjectileSpeed: 520,
		Accuracy:        0.6,
		Value:           1.5,
	},
	ShipBomber: {
		Name:            "Bomber",
		MaxHealth:       190,
		Speed:           90,
		RotationSpeed:   1.8,
		DetectionRange:  800,
		AttackRange:     420,
		Size:            16,
		FireRate:        0.8,
		ProjectileSpeed: 300,
		Accuracy:        0.65,
		Value:           2.5,
	},
	ShipCruiser: {
		Name:            "Cruiser",
		MaxHealth:       320,
		Speed:           70,
		RotationSpeed:   1.2,
		DetectionRange:  1300,
		AttackRange:     520,
		Size:            26,
		FireRate:        1.2,
		ProjectileSpeed: 380,
		Accuracy:        0.7,
		Value:           3.5,
	},
	ShipCarrier: {
		Name:            "Carrier",
		MaxHealth:       480,
		Speed:           50,
		RotationSpeed:   0.8,
		DetectionRange:  1500,
		AttackRange:     380,
		Size:            40,
		FireRate:        0.5,
		ProjectileSpeed: 320,
		Accuracy:        0.5,
		Value:           5.0,
	},
}
