package player

import (
	"fmt"
	"time"
)

// Resources is a bundle of spendable player balances.
type Resources struct {
	Coins     int64 `json:"coins" yaml:"coins"`
	Food      int64 `json:"food" yaml:"food"`
	Materials int64 `json:"materials" yaml:"materials"`
	Fuel      int64 `json:"fuel" yaml:"fuel"`
}

// Add returns the sum of r and o.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		Coins:     r.Coins + o.Coins,
		Food:      r.Food + o.Food,
		Materials: r.Materials + o.Materials,
		Fuel:      r.Fuel + o.Fuel,
	}
}

// Scale multiplies every balance by n.
func (r Resources) Scale(n int64) Resources {
	return Resources{
		Coins:     r.Coins * n,
		Food:      r.Food * n,
		Materials: r.Materials * n,
		Fuel:      r.Fuel * n,
	}
}

// Covers reports whether r holds at least cost of every resource.
func (r Resources) Covers(cost Resources) bool {
	return r.Coins >= cost.Coins &&
		r.Food >= cost.Food &&
		r.Materials >= cost.Materials &&
		r.Fuel >= cost.Fuel
}

// IsZero reports whether every balance is zero.
func (r Resources) IsZero() bool {
	return r == Resources{}
}

func (r Resources) String() string {
	return fmt.Sprintf("coins=%d food=%d materials=%d fuel=%d", r.Coins, r.Food, r.Materials, r.Fuel)
}

// Building identifies one of the player's base structures.
type Building string

const (
	BuildingKitchen  Building = "kitchen"
	BuildingBarracks Building = "barracks"
	BuildingWorkshop Building = "workshop"
	BuildingHangar   Building = "hangar"
)

// Buildings lists every building a player owns.
var Buildings = []Building{BuildingKitchen, BuildingBarracks, BuildingWorkshop, BuildingHangar}

// ParseBuilding validates a building name.
func ParseBuilding(name string) (Building, bool) {
	for _, b := range Buildings {
		if string(b) == name {
			return b, true
		}
	}
	return "", false
}

// Player is the owner of resources, cards and buildings.
type Player struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Resources Resources        `json:"resources"`
	Buildings map[Building]int `json:"buildings"`
	CreatedAt time.Time        `json:"created_at"`
}

// BuildingLevel returns the level of b, treating unknown buildings as level 1.
func (p *Player) BuildingLevel(b Building) int {
	if lvl, ok := p.Buildings[b]; ok && lvl > 0 {
		return lvl
	}
	return 1
}

// Card is a player-owned game piece. ActivityID is non-nil while the card is
// committed to an open activity.
type Card struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	Power      int       `json:"power"`
	Damaged    bool      `json:"damaged"`
	ActivityID *string   `json:"activity_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Busy reports whether the card is committed to an activity.
func (c *Card) Busy() bool {
	return c.ActivityID != nil
}

// Profile aggregates a player with their cards and statistics.
type Profile struct {
	Player *Player        `json:"player"`
	Cards  []*Card        `json:"cards"`
	Stats  map[Stat]int64 `json:"stats"`
}
