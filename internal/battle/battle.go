// Package battle resolves fights between groups of cards.
package battle

import (
	"math/rand/v2"

	"github.com/rpggio/starcards/internal/domain/player"
)

// Fighter is one combatant's contribution to a side.
type Fighter struct {
	Power   int
	Level   int
	Damaged bool
}

// FromCards converts cards into fighters.
func FromCards(cards []*player.Card) []Fighter {
	out := make([]Fighter, 0, len(cards))
	for _, c := range cards {
		out = append(out, Fighter{Power: c.Power, Level: c.Level, Damaged: c.Damaged})
	}
	return out
}

// Strength sums the side's effective power. A damaged fighter counts for half.
func Strength(side []Fighter) int {
	total := 0
	for _, f := range side {
		level := f.Level
		if level < 1 {
			level = 1
		}
		s := f.Power * level
		if f.Damaged {
			s /= 2
		}
		total += s
	}
	return total
}

// Result is the outcome of one fight, seen from the attacker.
type Result struct {
	AttackerStrength int     `json:"attacker_strength"`
	DefenderStrength int     `json:"defender_strength"`
	Chance           float64 `json:"chance"`
	Won              bool    `json:"won"`
}

// Simulator resolves fights with a random roll against the strength ratio.
type Simulator struct {
	roll func() float64
}

// NewSimulator creates a Simulator. A nil roll uses math/rand.
func NewSimulator(roll func() float64) *Simulator {
	if roll == nil {
		roll = rand.Float64
	}
	return &Simulator{roll: roll}
}

// Chance returns the attacker's probability of winning.
func (s *Simulator) Chance(attacker, defender []Fighter) float64 {
	return chance(Strength(attacker), Strength(defender))
}

// Fight resolves one battle.
func (s *Simulator) Fight(attacker, defender []Fighter) Result {
	a, d := Strength(attacker), Strength(defender)
	c := chance(a, d)
	return Result{
		AttackerStrength: a,
		DefenderStrength: d,
		Chance:           c,
		Won:              s.roll() < c,
	}
}

func chance(attack, defense int) float64 {
	switch {
	case attack <= 0:
		return 0
	case defense <= 0:
		return 1
	}
	return float64(attack) / float64(attack+defense)
}
