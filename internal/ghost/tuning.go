package ghost

// Tuning holds the behavior constants of the ghost. The values shape how
// bursty the wandering is and how quickly hunts escalate; none of them are
// load bearing on their own.
type Tuning struct {
	// Destination selection.
	SampleCount        int     `yaml:"sample_count"`
	MaxWanderDistance  float64 `yaml:"max_wander_distance"`
	WallPenalty        float64 `yaml:"wall_penalty"`
	FloorChangePenalty float64 `yaml:"floor_change_penalty"`
	HuntReselectChance int     `yaml:"hunt_reselect_chance"` // 1 in N per tick while hunting
	ArrivalRadius      float64 `yaml:"arrival_radius"`

	// Movement.
	WarpBurst     float64 `yaml:"warp_burst"`
	WarpChance    int     `yaml:"warp_chance"` // 1 in N per tick
	VerticalSpeed float64 `yaml:"vertical_speed"`

	// Hunts.
	RageLimitBase   float64 `yaml:"rage_limit_base"`
	RageLimitGrowth float64 `yaml:"rage_limit_growth"`
	RageLimitMax    float64 `yaml:"rage_limit_max"`
	RageLimitRelax  float64 `yaml:"rage_limit_relax"`
	WarningDuration float64 `yaml:"warning_duration"`
	RoomRageBonus   float64 `yaml:"room_rage_bonus"`
	AngerWindow     float64 `yaml:"anger_window"`

	// Expulsion.
	ExpulsionThreshold int     `yaml:"expulsion_threshold"`
	FadeDuration       float64 `yaml:"fade_duration"`

	// Countermeasures.
	RepellentRange float64 `yaml:"repellent_range"`
	RepellentRate  float64 `yaml:"repellent_rate"`
	SageRange      float64 `yaml:"sage_range"`
	SaltDuration   float64 `yaml:"salt_duration"`
	SaltInterval   float64 `yaml:"salt_interval"`
}

// DefaultTuning returns the standard ghost tuning.
func DefaultTuning() Tuning {
	return Tuning{
		SampleCount:        10,
		MaxWanderDistance:  16,
		WallPenalty:        -20,
		FloorChangePenalty: -30,
		HuntReselectChance: 60,
		ArrivalRadius:      0.5,

		WarpBurst:     40,
		WarpChance:    500,
		VerticalSpeed: 0.5,

		RageLimitBase:   400,
		RageLimitGrowth: 1.3,
		RageLimitMax:    8,
		RageLimitRelax:  1.001,
		WarningDuration: 5,
		RoomRageBonus:   4,
		AngerWindow:     10,

		ExpulsionThreshold: 400,
		FadeDuration:       5,

		RepellentRange: 1.5,
		RepellentRate:  183.2,
		SageRange:      5,
		SaltDuration:   120,
		SaltInterval:   0.3,
	}
}

// withDefaults fills zero fields from DefaultTuning so partial tuning files
// stay usable.
func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.SampleCount <= 0 {
		t.SampleCount = d.SampleCount
	}
	if t.MaxWanderDistance <= 0 {
		t.MaxWanderDistance = d.MaxWanderDistance
	}
	if t.WallPenalty == 0 {
		t.WallPenalty = d.WallPenalty
	}
	if t.FloorChangePenalty == 0 {
		t.FloorChangePenalty = d.FloorChangePenalty
	}
	if t.HuntReselectChance <= 0 {
		t.HuntReselectChance = d.HuntReselectChance
	}
	if t.ArrivalRadius <= 0 {
		t.ArrivalRadius = d.ArrivalRadius
	}
	if t.WarpBurst <= 0 {
		t.WarpBurst = d.WarpBurst
	}
	if t.WarpChance <= 0 {
		t.WarpChance = d.WarpChance
	}
	if t.VerticalSpeed <= 0 {
		t.VerticalSpeed = d.VerticalSpeed
	}
	if t.RageLimitBase <= 0 {
		t.RageLimitBase = d.RageLimitBase
	}
	if t.RageLimitGrowth < 1 {
		t.RageLimitGrowth = d.RageLimitGrowth
	}
	if t.RageLimitMax < 1 {
		t.RageLimitMax = d.RageLimitMax
	}
	if t.RageLimitRelax < 1 {
		t.RageLimitRelax = d.RageLimitRelax
	}
	if t.WarningDuration <= 0 {
		t.WarningDuration = d.WarningDuration
	}
	if t.RoomRageBonus < 0 {
		t.RoomRageBonus = d.RoomRageBonus
	}
	if t.AngerWindow <= 0 {
		t.AngerWindow = d.AngerWindow
	}
	if t.ExpulsionThreshold <= 0 {
		t.ExpulsionThreshold = d.ExpulsionThreshold
	}
	if t.FadeDuration <= 0 {
		t.FadeDuration = d.FadeDuration
	}
	if t.RepellentRange <= 0 {
		t.RepellentRange = d.RepellentRange
	}
	if t.RepellentRate <= 0 {
		t.RepellentRate = d.RepellentRate
	}
	if t.SageRange <= 0 {
		t.SageRange = d.SageRange
	}
	if t.SaltDuration <= 0 {
		t.SaltDuration = d.SaltDuration
	}
	if t.SaltInterval <= 0 {
		t.SaltInterval = d.SaltInterval
	}
	return t
}
