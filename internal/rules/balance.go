package rules

import (
	"time"

	"github.com/rpggio/starcards/internal/domain/player"
)

// Balance holds the game tuning tables. It is loaded from the config file and
// falls back to DefaultBalance for anything left unset.
type Balance struct {
	Starter player.StarterKit `yaml:"starter"`
	Cook    CookBalance       `yaml:"cook"`
	Train   TrainBalance      `yaml:"train"`
	Repair  RepairBalance     `yaml:"repair"`
	Build   BuildBalance      `yaml:"build"`
	Explore ExploreBalance    `yaml:"explore"`
	Orbit   OrbitBalance      `yaml:"orbit"`
	War     WarBalance        `yaml:"war"`
	Boss    BossBalance       `yaml:"boss"`
}

// CookBalance tunes kitchen meals.
type CookBalance struct {
	BaseDuration   time.Duration    `yaml:"base_duration"`
	LevelSpeedup   time.Duration    `yaml:"level_speedup"`
	MinDuration    time.Duration    `yaml:"min_duration"`
	Cost           player.Resources `yaml:"cost"`
	RewardPerLevel player.Resources `yaml:"reward_per_level"`
}

// Duration is the cooking time at the given kitchen level.
func (b CookBalance) Duration(kitchenLevel int) time.Duration {
	d := b.BaseDuration - time.Duration(kitchenLevel-1)*b.LevelSpeedup
	if d < b.MinDuration {
		return b.MinDuration
	}
	return d
}

// TrainBalance tunes card training.
type TrainBalance struct {
	DurationPerLevel time.Duration    `yaml:"duration_per_level"`
	CostPerLevel     player.Resources `yaml:"cost_per_level"`
	PowerGain        int              `yaml:"power_gain"`
	MaxLevel         int              `yaml:"max_level"`
	MaxCards         int              `yaml:"max_cards"`
}

// RepairBalance tunes card repair.
type RepairBalance struct {
	Duration    time.Duration    `yaml:"duration"`
	CostPerCard player.Resources `yaml:"cost_per_card"`
	MaxCards    int              `yaml:"max_cards"`
}

// BuildBalance tunes building upgrades.
type BuildBalance struct {
	DurationPerLevel time.Duration    `yaml:"duration_per_level"`
	CostPerLevel     player.Resources `yaml:"cost_per_level"`
	MaxLevel         int              `yaml:"max_level"`
}

// Destination is one place an expedition can go.
type Destination struct {
	Leg    time.Duration    `yaml:"leg"`
	Cost   player.Resources `yaml:"cost"`
	Loot   player.Resources `yaml:"loot"`
	Danger int              `yaml:"danger"`
}

// ExploreBalance tunes expeditions.
type ExploreBalance struct {
	Destinations map[string]Destination `yaml:"destinations"`
	// HangarSpeedup is the fraction of a leg saved per hangar level above 1.
	HangarSpeedup float64 `yaml:"hangar_speedup"`
	MaxCards      int     `yaml:"max_cards"`
}

// LegDuration is the one-way travel time at the given hangar level. Legs never
// shrink below half their base length.
func (b ExploreBalance) LegDuration(dest Destination, hangarLevel int) time.Duration {
	factor := 1 - b.HangarSpeedup*float64(hangarLevel-1)
	if factor < 0.5 {
		factor = 0.5
	}
	return time.Duration(float64(dest.Leg) * factor).Round(time.Second)
}

// OrbitSite is a planet cards can circle to skim fuel.
type OrbitSite struct {
	Duration time.Duration    `yaml:"duration"`
	Cost     player.Resources `yaml:"cost"`
	// YieldPerLevel is granted once per card level in orbit.
	YieldPerLevel player.Resources `yaml:"yield_per_level"`
}

// OrbitBalance tunes orbital harvesting.
type OrbitBalance struct {
	Sites    map[string]OrbitSite `yaml:"sites"`
	MaxCards int                  `yaml:"max_cards"`
}

// WarBalance tunes wars between players.
type WarBalance struct {
	Muster      time.Duration    `yaml:"muster"`
	March       time.Duration    `yaml:"march"`
	CostPerCard player.Resources `yaml:"cost_per_card"`
	PlunderRate float64          `yaml:"plunder_rate"`
	MaxCards    int              `yaml:"max_cards"`
}

// Boss is a scripted opponent.
type Boss struct {
	Power    int              `yaml:"power"`
	Duration time.Duration    `yaml:"duration"`
	Cost     player.Resources `yaml:"cost"`
	Reward   player.Resources `yaml:"reward"`
}

// BossBalance tunes boss fights.
type BossBalance struct {
	Bosses   map[string]Boss `yaml:"bosses"`
	MaxCards int             `yaml:"max_cards"`
}

// DefaultBalance returns the built-in tuning tables.
func DefaultBalance() Balance {
	return Balance{
		Starter: player.StarterKit{
			Resources: player.Resources{Coins: 200, Food: 100, Materials: 50, Fuel: 100},
			Cards: []player.CardTemplate{
				{Name: "Pilot", Power: 10},
				{Name: "Engineer", Power: 8},
				{Name: "Gunner", Power: 12},
			},
		},
		Cook: CookBalance{
			BaseDuration:   30 * time.Minute,
			LevelSpeedup:   5 * time.Minute,
			MinDuration:    10 * time.Minute,
			Cost:           player.Resources{Coins: 5},
			RewardPerLevel: player.Resources{Food: 10},
		},
		Train: TrainBalance{
			DurationPerLevel: 20 * time.Minute,
			CostPerLevel:     player.Resources{Coins: 20, Food: 5},
			PowerGain:        5,
			MaxLevel:         10,
			MaxCards:         5,
		},
		Repair: RepairBalance{
			Duration:    15 * time.Minute,
			CostPerCard: player.Resources{Materials: 10},
			MaxCards:    5,
		},
		Build: BuildBalance{
			DurationPerLevel: time.Hour,
			CostPerLevel:     player.Resources{Coins: 50, Materials: 20},
			MaxLevel:         5,
		},
		Explore: ExploreBalance{
			Destinations: map[string]Destination{
				"moon": {
					Leg:    20 * time.Minute,
					Cost:   player.Resources{Fuel: 10},
					Loot:   player.Resources{Coins: 10, Materials: 30},
					Danger: 10,
				},
				"asteroid_belt": {
					Leg:    45 * time.Minute,
					Cost:   player.Resources{Fuel: 25},
					Loot:   player.Resources{Coins: 40, Materials: 80},
					Danger: 40,
				},
				"nebula": {
					Leg:    2 * time.Hour,
					Cost:   player.Resources{Fuel: 60},
					Loot:   player.Resources{Coins: 200, Materials: 150},
					Danger: 120,
				},
			},
			HangarSpeedup: 0.1,
			MaxCards:      3,
		},
		Orbit: OrbitBalance{
			Sites: map[string]OrbitSite{
				"gas_giant": {
					Duration:      time.Hour,
					Cost:          player.Resources{Food: 5},
					YieldPerLevel: player.Resources{Fuel: 15},
				},
				"ice_world": {
					Duration:      3 * time.Hour,
					Cost:          player.Resources{Food: 15},
					YieldPerLevel: player.Resources{Fuel: 40, Materials: 10},
				},
			},
			MaxCards: 3,
		},
		War: WarBalance{
			Muster:      10 * time.Minute,
			March:       20 * time.Minute,
			CostPerCard: player.Resources{Food: 5, Fuel: 5},
			PlunderRate: 0.2,
			MaxCards:    5,
		},
		Boss: BossBalance{
			Bosses: map[string]Boss{
				"space_kraken": {
					Power:    60,
					Duration: 30 * time.Minute,
					Cost:     player.Resources{Food: 10, Fuel: 20},
					Reward:   player.Resources{Coins: 150},
				},
				"void_titan": {
					Power:    200,
					Duration: 90 * time.Minute,
					Cost:     player.Resources{Food: 30, Fuel: 50},
					Reward:   player.Resources{Coins: 600, Materials: 100},
				},
			},
			MaxCards: 5,
		},
	}
}
