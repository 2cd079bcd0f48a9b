package item

import (
	"strings"
	"unicode"
)

// Enchantment is an enchant code and its level.
type Enchantment struct {
	Name  string
	Level int
}

// Rune is an applied cosmetic rune.
type Rune struct {
	Name  string
	Level int
}

// Item is the canonical description of one listed item stack.
type Item struct {
	ID          string
	BaseName    string
	DisplayName string
	APIID       string
	Rarity      Rarity
	StackSize   int

	Rune           *Rune
	Enchantments   []Enchantment
	Recombobulated bool
	Fragmented     bool
	HotPotatoCount int
	Reforge        string
	DungeonStars   int

	PetType       string
	PetExperience float64
	PetCandyUsed  int
}

// IsPet reports whether the item resolved to a pet identifier.
func (it Item) IsPet() bool {
	return strings.HasSuffix(it.ID, "_PET")
}

// HasASCIIBaseName reports whether the base name contains only ASCII.
func (it Item) HasASCIIBaseName() bool {
	for _, r := range it.BaseName {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// Enchant returns the level of the named enchantment, or 0.
func (it Item) Enchant(name string) int {
	for _, e := range it.Enchantments {
		if e.Name == name {
			return e.Level
		}
	}
	return 0
}
