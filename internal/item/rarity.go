package item

import "strings"

// Rarity is an ordered item rarity. Unknown sorts after every real rarity.
type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary
	Mythic
	Supreme
	Special
	VerySpecial
	Unknown
)

var rarityNames = [...]string{
	"COMMON", "UNCOMMON", "RARE", "EPIC", "LEGENDARY",
	"MYTHIC", "SUPREME", "SPECIAL", "VERY_SPECIAL", "UNKNOWN",
}

// Rarities lists every known rarity in ascending order, excluding Unknown.
func Rarities() []Rarity {
	out := make([]Rarity, 0, int(Unknown))
	for r := Common; r < Unknown; r++ {
		out = append(out, r)
	}
	return out
}

func (r Rarity) String() string {
	if r < 0 || int(r) >= len(rarityNames) {
		return "UNKNOWN"
	}
	return rarityNames[r]
}

// ParseRarity maps a rarity token to a Rarity, returning Unknown when the
// token is not recognised.
func ParseRarity(s string) Rarity {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range rarityNames {
		if name == s {
			return Rarity(i)
		}
	}
	return Unknown
}

// MarshalText implements encoding.TextMarshaler.
func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rarity) UnmarshalText(b []byte) error {
	*r = ParseRarity(string(b))
	return nil
}
