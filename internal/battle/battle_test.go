package battle

import (
	"testing"

	"github.com/rpggio/starcards/internal/domain/player"
	"github.com/stretchr/testify/require"
)

func TestStrength(t *testing.T) {
	side := []Fighter{
		{Power: 10, Level: 2},
		{Power: 10, Level: 1, Damaged: true},
		{Power: 4},
	}
	require.Equal(t, 20+5+4, Strength(side))
	require.Equal(t, 0, Strength(nil))
}

func TestFromCards(t *testing.T) {
	cards := []*player.Card{{Power: 7, Level: 3, Damaged: true}}
	require.Equal(t, []Fighter{{Power: 7, Level: 3, Damaged: true}}, FromCards(cards))
}

func TestSimulator_Chance(t *testing.T) {
	s := NewSimulator(nil)

	require.Equal(t, 1.0, s.Chance([]Fighter{{Power: 1, Level: 1}}, nil))
	require.Equal(t, 0.0, s.Chance(nil, []Fighter{{Power: 1, Level: 1}}))
	require.InDelta(t, 0.75, s.Chance([]Fighter{{Power: 30, Level: 1}}, []Fighter{{Power: 10, Level: 1}}), 1e-9)
}

func TestSimulator_Fight(t *testing.T) {
	attacker := []Fighter{{Power: 30, Level: 1}}
	defender := []Fighter{{Power: 10, Level: 1}}

	win := NewSimulator(func() float64 { return 0.74 }).Fight(attacker, defender)
	require.True(t, win.Won)
	require.Equal(t, 30, win.AttackerStrength)
	require.Equal(t, 10, win.DefenderStrength)

	loss := NewSimulator(func() float64 { return 0.75 }).Fight(attacker, defender)
	require.False(t, loss.Won)
}
