package item

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rickgao/skyblock-data/internal/nbt"
)

const (
	idEnchantedBook = "ENCHANTED_BOOK"
	idRune          = "RUNE"
	idPet           = "PET"
)

type petInfo struct {
	Type      string  `json:"type"`
	Exp       float64 `json:"exp"`
	CandyUsed int     `json:"candyUsed"`
}

// view holds the sub-trees every extraction rule reads from.
type view struct {
	stack   *nbt.Compound
	extra   *nbt.Compound
	display *nbt.Compound
}

func newView(root *nbt.Compound) view {
	var v view
	items, ok := root.GetList("i")
	if !ok || items.Len() == 0 {
		return v
	}
	v.stack, _ = items.Items[0].(*nbt.Compound)
	tag, _ := v.stack.GetCompound("tag")
	v.extra, _ = tag.GetCompound("ExtraAttributes")
	if d, ok := tag.GetCompound("display"); ok {
		v.display = d
	} else {
		v.display, _ = v.stack.GetCompound("display")
	}
	return v
}

func (v view) count(name string) int {
	n, _ := v.extra.GetInt(name)
	return int(n)
}

func (v view) name() string {
	s, _ := v.display.GetString("Name")
	return StripStyle(s)
}

func (v view) lore() []string {
	l, ok := v.display.GetList("Lore")
	if !ok {
		return nil
	}
	out := make([]string, 0, l.Len())
	for _, t := range l.Items {
		if s, ok := t.(nbt.String); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// Extract derives an Item from a decoded item_bytes tree.
func Extract(root *nbt.Compound) Item {
	v := newView(root)

	apiID, _ := v.extra.GetString("id")
	reforge, _ := v.extra.GetString("modifier")

	it := Item{
		APIID:          apiID,
		StackSize:      1,
		Enchantments:   enchantments(v.extra),
		Rune:           firstRune(v.extra),
		Recombobulated: v.extra.Has("rarity_upgrades"),
		Fragmented:     strings.HasPrefix(apiID, fragmentPrefix),
		HotPotatoCount: v.count("hot_potato_count"),
		Reforge:        reforge,
		DungeonStars:   v.count("dungeon_item_level"),
	}
	if n, ok := v.stack.GetInt("Count"); ok {
		it.StackSize = int(n)
	}

	pet, hasPet := parsePetInfo(v.extra)
	if hasPet {
		it.PetType = pet.Type
		it.PetExperience = pet.Exp
		it.PetCandyUsed = pet.CandyUsed
	}

	display := v.name()
	it.DisplayName = display

	switch {
	case apiID == idEnchantedBook && len(it.Enchantments) == 1:
		e := it.Enchantments[0]
		it.ID = fmt.Sprintf("%s_%d_BOOK", strings.ToUpper(bookEnchant(e.Name)), e.Level)
		it.BaseName = idToName(it.ID)
		it.DisplayName = it.BaseName
	case apiID == idRune && it.Rune != nil:
		it.ID = fmt.Sprintf("%s_RUNE_%d", it.Rune.Name, it.Rune.Level)
		it.BaseName = replaceLastWord(baseName(display, reforge), strconv.Itoa(it.Rune.Level))
	case apiID == idPet && hasPet && pet.Type != "":
		it.ID = pet.Type + "_PET"
		it.BaseName = idToName(it.ID)
	case fixedNames[apiID] != "":
		it.ID = apiID
		it.BaseName = fixedNames[apiID]
	default:
		it.ID = strings.TrimPrefix(apiID, fragmentPrefix)
		it.BaseName = baseName(display, reforge)
	}

	it.Rarity = rarity(v.lore(), apiID == idRune)
	return it
}

func enchantments(extra *nbt.Compound) []Enchantment {
	c, ok := extra.GetCompound("enchantments")
	if !ok || c.Len() == 0 {
		return nil
	}
	out := make([]Enchantment, 0, c.Len())
	for _, f := range c.Fields() {
		lvl, ok := nbt.AsInt(f.Value)
		if !ok {
			continue
		}
		out = append(out, Enchantment{Name: f.Name, Level: int(lvl)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func firstRune(extra *nbt.Compound) *Rune {
	c, ok := extra.GetCompound("runes")
	if !ok {
		return nil
	}
	for _, f := range c.Fields() {
		if lvl, ok := nbt.AsInt(f.Value); ok {
			return &Rune{Name: f.Name, Level: int(lvl)}
		}
	}
	return nil
}

func parsePetInfo(extra *nbt.Compound) (petInfo, bool) {
	var p petInfo
	raw, ok := extra.GetString("petInfo")
	if !ok {
		return p, false
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return petInfo{}, false
	}
	return p, true
}

// rarity reads the rarity word from the last lore line. Runes carry a
// trailing footer, so for them the last line ending in COSMETIC wins.
func rarity(lore []string, isRune bool) Rarity {
	if len(lore) == 0 {
		return Unknown
	}
	line := lore[len(lore)-1]
	if isRune {
		for _, l := range lore {
			if strings.HasSuffix(StripStyle(l), "COSMETIC") {
				line = l
			}
		}
	}

	words := strings.Fields(StripStyle(line))
	if len(words) == 0 {
		return Unknown
	}
	if words[0] == "VERY" {
		return VerySpecial
	}
	return ParseRarity(words[0])
}
