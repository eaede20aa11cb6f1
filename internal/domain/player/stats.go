package player

// Stat names one of the player's lifetime counters.
type Stat string

const (
	StatMealsCooked       Stat = "meals_cooked"
	StatCardsTrained      Stat = "cards_trained"
	StatCardsRepaired     Stat = "cards_repaired"
	StatBuildingsUpgraded Stat = "buildings_upgraded"
	StatExpeditions       Stat = "expeditions"
	StatExpeditionsFailed Stat = "expeditions_failed"
	StatOrbits            Stat = "orbits"
	StatWarsFought        Stat = "wars_fought"
	StatWarsWon           Stat = "wars_won"
	StatBossesDefeated    Stat = "bosses_defeated"
)

// Stats lists every counter. Storage accepts only these names.
var Stats = []Stat{
	StatMealsCooked,
	StatCardsTrained,
	StatCardsRepaired,
	StatBuildingsUpgraded,
	StatExpeditions,
	StatExpeditionsFailed,
	StatOrbits,
	StatWarsFought,
	StatWarsWon,
	StatBossesDefeated,
}

// Valid reports whether s is a known counter.
func (s Stat) Valid() bool {
	for _, known := range Stats {
		if s == known {
			return true
		}
	}
	return false
}
