package item

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

var (
	//go:embed exceptions/enchants.json
	enchantsJSON []byte
	//go:embed exceptions/reforges.json
	reforgesJSON []byte

	enchantRenames  = mustTable(enchantsJSON)
	reforgeRenames  = mustTable(reforgesJSON)
	styleCodes      = regexp.MustCompile(`§ka|§.`)
	decorativeGlyph = regexp.MustCompile(`[✪⚚✦◆™©�]`)
)

// Ultimate enchants that keep their prefix in book identifiers.
var keepUltimatePrefix = map[string]bool{
	"ultimate_wise":  true,
	"ultimate_jerry": true,
}

// Items with a fixed base name regardless of their display name.
var fixedNames = map[string]string{
	"CAKE_SOUL": "Cake Soul",
}

const (
	fragmentPrefix = "STARRED_"
	ultimatePrefix = "ultimate_"
)

func mustTable(b []byte) map[string]string {
	m := make(map[string]string)
	if err := json.Unmarshal(b, &m); err != nil {
		panic("item: bad embedded table: " + err.Error())
	}
	return m
}

// StripStyle removes formatting codes and surrounding whitespace.
func StripStyle(s string) string {
	return strings.TrimSpace(styleCodes.ReplaceAllString(s, ""))
}

func stripGlyphs(s string) string {
	return strings.TrimSpace(decorativeGlyph.ReplaceAllString(s, ""))
}

// bookEnchant renormalises an API enchant code for a book identifier.
func bookEnchant(code string) string {
	if r, ok := enchantRenames[code]; ok {
		code = r
	}
	if strings.HasPrefix(code, ultimatePrefix) && !keepUltimatePrefix[code] {
		code = strings.TrimPrefix(code, ultimatePrefix)
	}
	return code
}

// baseName drops the reforge word from a glyph-free display name.
func baseName(display, reforge string) string {
	name := stripGlyphs(display)
	if reforge == "" {
		return name
	}
	if r, ok := reforgeRenames[name]; ok {
		return r
	}
	if _, rest, ok := strings.Cut(name, " "); ok {
		return rest
	}
	return name
}

// idToName renders an identifier like LION_PET as "Lion Pet".
func idToName(id string) string {
	return strings.ReplaceAll(titleCase(id), "_", " ")
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && prevLetter:
			b.WriteRune(unicode.ToLower(r))
		case isLetter:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}

// replaceLastWord swaps the final space-separated word of s, or appends
// word when s has only one.
func replaceLastWord(s, word string) string {
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		return s[:i] + " " + word
	}
	return s + " " + word
}
