package item

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickgao/skyblock-data/internal/nbt"
)

func loadSample(t *testing.T, name string) *nbt.Compound {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name+".b64"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	root, err := nbt.DecodeItemBytes(strings.TrimSpace(string(b)))
	if err != nil {
		t.Fatalf("decode sample %s: %v", name, err)
	}
	return root
}

func TestExtractIdentifiers(t *testing.T) {
	tests := []struct {
		sample      string
		id          string
		baseName    string
		displayName string
		rarity      Rarity
	}{
		{"lion_pet", "LION_PET", "Lion Pet", "[Lvl 37] Lion", Epic},
		{"flower_of_truth", "FLOWER_OF_TRUTH", "Flower of Truth", "Withered Flower of Truth ✪✪✪✪✪", Mythic},
		{"shadow_assassin_boots", "SHADOW_ASSASSIN_BOOTS", "Shadow Assassin Boots", "⚚ Ancient Shadow Assassin Boots ✪✪✪✪✪", Legendary},
		{"book_ultimate_wise", "ULTIMATE_WISE_1_BOOK", "Ultimate Wise 1 Book", "Ultimate Wise 1 Book", Common},
		{"book_multi", "ENCHANTED_BOOK", "Enchanted Book", "Enchanted Book", Uncommon},
		{"rune_blood", "BLOOD_2_RUNE_3", "Blood Rune 3", "◆ Blood Rune III", Common},
	}

	for _, tt := range tests {
		t.Run(tt.sample, func(t *testing.T) {
			it := Extract(loadSample(t, tt.sample))
			if it.ID != tt.id {
				t.Errorf("ID = %q, want %q", it.ID, tt.id)
			}
			if it.BaseName != tt.baseName {
				t.Errorf("BaseName = %q, want %q", it.BaseName, tt.baseName)
			}
			if it.DisplayName != tt.displayName {
				t.Errorf("DisplayName = %q, want %q", it.DisplayName, tt.displayName)
			}
			if it.Rarity != tt.rarity {
				t.Errorf("Rarity = %v, want %v", it.Rarity, tt.rarity)
			}
			if it.StackSize != 1 {
				t.Errorf("StackSize = %d, want 1", it.StackSize)
			}
		})
	}
}

func TestExtractAttributes(t *testing.T) {
	t.Run("pet", func(t *testing.T) {
		it := Extract(loadSample(t, "lion_pet"))
		if it.PetType != "LION" {
			t.Errorf("PetType = %q, want LION", it.PetType)
		}
		if it.PetExperience != 126005.20249599859 {
			t.Errorf("PetExperience = %v", it.PetExperience)
		}
		if it.PetCandyUsed != 1 {
			t.Errorf("PetCandyUsed = %d, want 1", it.PetCandyUsed)
		}
		if it.Reforge != "" {
			t.Errorf("Reforge = %q, want empty", it.Reforge)
		}
		if !it.IsPet() {
			t.Error("IsPet() = false")
		}
	})

	t.Run("dungeon weapon", func(t *testing.T) {
		it := Extract(loadSample(t, "flower_of_truth"))
		if it.HotPotatoCount != 10 {
			t.Errorf("HotPotatoCount = %d, want 10", it.HotPotatoCount)
		}
		if !it.Recombobulated {
			t.Error("Recombobulated = false")
		}
		if it.Reforge != "withered" {
			t.Errorf("Reforge = %q, want withered", it.Reforge)
		}
		if it.DungeonStars != 5 {
			t.Errorf("DungeonStars = %d, want 5", it.DungeonStars)
		}
		if it.Fragmented {
			t.Error("Fragmented = true")
		}
		if len(it.Enchantments) != 21 {
			t.Errorf("len(Enchantments) = %d, want 21", len(it.Enchantments))
		}
		if got := it.Enchant("ultimate_soul_eater"); got != 2 {
			t.Errorf("ultimate_soul_eater = %d, want 2", got)
		}
		for i := 1; i < len(it.Enchantments); i++ {
			if it.Enchantments[i-1].Name >= it.Enchantments[i].Name {
				t.Fatalf("enchantments not sorted at %d", i)
			}
		}
	})

	t.Run("fragmented armor with rune", func(t *testing.T) {
		it := Extract(loadSample(t, "shadow_assassin_boots"))
		if !it.Fragmented {
			t.Error("Fragmented = false")
		}
		if it.Recombobulated {
			t.Error("Recombobulated = true")
		}
		if it.Rune == nil || *it.Rune != (Rune{Name: "CLOUDS", Level: 3}) {
			t.Errorf("Rune = %+v, want CLOUDS 3", it.Rune)
		}
		if it.APIID != "STARRED_SHADOW_ASSASSIN_BOOTS" {
			t.Errorf("APIID = %q", it.APIID)
		}
	})

	t.Run("rune item", func(t *testing.T) {
		it := Extract(loadSample(t, "rune_blood"))
		if it.Rune == nil || *it.Rune != (Rune{Name: "BLOOD_2", Level: 3}) {
			t.Errorf("Rune = %+v, want BLOOD_2 3", it.Rune)
		}
	})

	t.Run("multi enchant book", func(t *testing.T) {
		it := Extract(loadSample(t, "book_multi"))
		want := []Enchantment{{"bane_of_arthropods", 5}, {"ultimate_wise", 1}}
		if len(it.Enchantments) != len(want) {
			t.Fatalf("Enchantments = %v, want %v", it.Enchantments, want)
		}
		for i := range want {
			if it.Enchantments[i] != want[i] {
				t.Errorf("Enchantments[%d] = %v, want %v", i, it.Enchantments[i], want[i])
			}
		}
	})
}

func stackWith(extra *nbt.Compound, display *nbt.Compound) *nbt.Compound {
	tag := nbt.NewCompound(nbt.Field{Name: "ExtraAttributes", Value: extra})
	if display != nil {
		tag.Set("display", display)
	}
	stack := nbt.NewCompound(
		nbt.Field{Name: "Count", Value: nbt.Byte(1)},
		nbt.Field{Name: "tag", Value: tag},
	)
	return nbt.NewCompound(nbt.Field{Name: "i", Value: &nbt.List{Elem: nbt.KindCompound, Items: []nbt.Tag{stack}}})
}

func displayOf(name string, lore ...string) *nbt.Compound {
	l := &nbt.List{Elem: nbt.KindString}
	for _, s := range lore {
		l.Items = append(l.Items, nbt.String(s))
	}
	return nbt.NewCompound(
		nbt.Field{Name: "Name", Value: nbt.String(name)},
		nbt.Field{Name: "Lore", Value: l},
	)
}

func TestExtractSingleEnchantBook(t *testing.T) {
	// display sits beside tag rather than under it
	extra := nbt.NewCompound(
		nbt.Field{Name: "id", Value: nbt.String("ENCHANTED_BOOK")},
		nbt.Field{Name: "enchantments", Value: nbt.NewCompound(nbt.Field{Name: "sharpness", Value: nbt.Int(5)})},
	)
	tag := nbt.NewCompound(nbt.Field{Name: "ExtraAttributes", Value: extra})
	stack := nbt.NewCompound(
		nbt.Field{Name: "Count", Value: nbt.Byte(1)},
		nbt.Field{Name: "tag", Value: tag},
		nbt.Field{Name: "display", Value: displayOf("§rEnchanted Book", "§fRARE")},
	)
	root := nbt.NewCompound(nbt.Field{Name: "i", Value: &nbt.List{Elem: nbt.KindCompound, Items: []nbt.Tag{stack}}})

	it := Extract(root)
	if it.ID != "SHARPNESS_5_BOOK" {
		t.Errorf("ID = %q, want SHARPNESS_5_BOOK", it.ID)
	}
	if it.BaseName != "Sharpness 5 Book" {
		t.Errorf("BaseName = %q", it.BaseName)
	}
	if it.Rarity != Rare {
		t.Errorf("Rarity = %v, want RARE", it.Rarity)
	}
	if len(it.Enchantments) != 1 || it.Enchantments[0] != (Enchantment{"sharpness", 5}) {
		t.Errorf("Enchantments = %v", it.Enchantments)
	}
}

func TestExtractBookEnchantRenames(t *testing.T) {
	tests := []struct {
		code string
		lvl  int32
		id   string
		name string
	}{
		{"ultimate_soul_eater", 5, "SOUL_EATER_5_BOOK", "Soul Eater 5 Book"},
		{"ultimate_jerry", 3, "ULTIMATE_JERRY_3_BOOK", "Ultimate Jerry 3 Book"},
		{"ultimate_reiterate", 2, "DUPLEX_2_BOOK", "Duplex 2 Book"},
		{"bane_of_arthropods", 6, "BANE_OF_ARTHROPODS_6_BOOK", "Bane Of Arthropods 6 Book"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			extra := nbt.NewCompound(
				nbt.Field{Name: "id", Value: nbt.String("ENCHANTED_BOOK")},
				nbt.Field{Name: "enchantments", Value: nbt.NewCompound(nbt.Field{Name: tt.code, Value: nbt.Int(tt.lvl)})},
			)
			it := Extract(stackWith(extra, displayOf("§9Enchanted Book", "§9§lRARE")))
			if it.ID != tt.id {
				t.Errorf("ID = %q, want %q", it.ID, tt.id)
			}
			if it.BaseName != tt.name || it.DisplayName != tt.name {
				t.Errorf("names = %q / %q, want %q", it.BaseName, it.DisplayName, tt.name)
			}
		})
	}
}

func TestExtractRarity(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		lore   []string
		rarity Rarity
	}{
		{"very special", "X", []string{"§c§lVERY SPECIAL"}, VerySpecial},
		{"unrecognised word", "X", []string{"§7Click to view!"}, Unknown},
		{"blank last line", "X", []string{"§6§lLEGENDARY", ""}, Unknown},
		{"no lore", "X", nil, Unknown},
		{"rune footer", "RUNE", []string{"§f§lRARE COSMETIC", "§8Footer"}, Rare},
		{"non rune ignores footer", "X", []string{"§f§lRARE COSMETIC", "§8Footer"}, Unknown},
		{"obfuscated markers", "X", []string{"§d§l§ka§r §d§lMYTHIC DUNGEON SWORD §d§l§ka"}, Mythic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extra := nbt.NewCompound(nbt.Field{Name: "id", Value: nbt.String(tt.id)})
			var display *nbt.Compound
			if tt.lore != nil {
				display = displayOf("Thing", tt.lore...)
			}
			if got := Extract(stackWith(extra, display)).Rarity; got != tt.rarity {
				t.Errorf("Rarity = %v, want %v", got, tt.rarity)
			}
		})
	}
}

func TestExtractGeneralCase(t *testing.T) {
	tests := []struct {
		name     string
		apiID    string
		reforge  string
		display  string
		id       string
		baseName string
	}{
		{"no reforge keeps name", "HYPERION", "", "§6Hyperion", "HYPERION", "Hyperion"},
		{"reforge drops first word", "HYPERION", "heroic", "§6Heroic Hyperion §6✪§6✪", "HYPERION", "Hyperion"},
		{"reforge exception table", "WISE_DRAGON_HELMET", "wise", "§6Very Wise Dragon Helmet", "WISE_DRAGON_HELMET", "Wise Dragon Helmet"},
		{"single word name with reforge", "STICK", "odd", "Stick", "STICK", "Stick"},
		{"fixed name", "CAKE_SOUL", "", "§dCake Soul §7(Year 100)", "CAKE_SOUL", "Cake Soul"},
		{"fragment prefix", "STARRED_BONZO_STAFF", "", "§9Bonzo's Staff", "BONZO_STAFF", "Bonzo's Staff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extra := nbt.NewCompound(nbt.Field{Name: "id", Value: nbt.String(tt.apiID)})
			if tt.reforge != "" {
				extra.Set("modifier", nbt.String(tt.reforge))
			}
			it := Extract(stackWith(extra, displayOf(tt.display, "§6§lLEGENDARY")))
			if it.ID != tt.id {
				t.Errorf("ID = %q, want %q", it.ID, tt.id)
			}
			if it.BaseName != tt.baseName {
				t.Errorf("BaseName = %q, want %q", it.BaseName, tt.baseName)
			}
		})
	}
}

func TestExtractDegradesOnMissingData(t *testing.T) {
	tests := []struct {
		name string
		root *nbt.Compound
	}{
		{"empty root", nbt.NewCompound()},
		{"empty item list", nbt.NewCompound(nbt.Field{Name: "i", Value: &nbt.List{Elem: nbt.KindCompound}})},
		{"item list of strings", nbt.NewCompound(nbt.Field{Name: "i", Value: &nbt.List{Elem: nbt.KindString, Items: []nbt.Tag{nbt.String("x")}}})},
		{"wrong field kinds", stackWith(nbt.NewCompound(
			nbt.Field{Name: "id", Value: nbt.Int(3)},
			nbt.Field{Name: "hot_potato_count", Value: nbt.String("ten")},
			nbt.Field{Name: "enchantments", Value: nbt.String("none")},
			nbt.Field{Name: "petInfo", Value: nbt.String("{not json")},
		), nil)},
		{"pet without info", stackWith(nbt.NewCompound(nbt.Field{Name: "id", Value: nbt.String("PET")}), nil)},
		{"rune without runes", stackWith(nbt.NewCompound(nbt.Field{Name: "id", Value: nbt.String("RUNE")}), nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := Extract(tt.root)
			if it.Rarity != Unknown {
				t.Errorf("Rarity = %v, want UNKNOWN", it.Rarity)
			}
			if it.HotPotatoCount != 0 || it.DungeonStars != 0 || len(it.Enchantments) != 0 {
				t.Errorf("unexpected attributes: %+v", it)
			}
		})
	}
}

func TestHasASCIIBaseName(t *testing.T) {
	if !(Item{BaseName: "Aspect of the End"}).HasASCIIBaseName() {
		t.Error("plain name reported non-ASCII")
	}
	if (Item{BaseName: "Néw Item"}).HasASCIIBaseName() {
		t.Error("accented name reported ASCII")
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"LION_PET":             "Lion_Pet",
		"ULTIMATE_WISE_1_BOOK": "Ultimate_Wise_1_Book",
		"bane of arthropods":   "Bane Of Arthropods",
		"3rd":                  "3Rd",
		"":                     "",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRarity(t *testing.T) {
	for _, r := range Rarities() {
		if got := ParseRarity(r.String()); got != r {
			t.Errorf("ParseRarity(%q) = %v", r.String(), got)
		}
	}
	if ParseRarity("DIVINE") != Unknown {
		t.Error("unknown token should map to Unknown")
	}
	if !(Common < Legendary && Legendary < VerySpecial) {
		t.Error("rarity ordering broken")
	}
}
