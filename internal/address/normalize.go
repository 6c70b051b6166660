// Package address normalizes free-text delivery addresses: expanding
// abbreviations, folding locality aliases, stripping diacritics for cache
// keys, and reordering components into a canonical "street, locality,
// Mendoza" shape.
package address

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// abbrevRule is one "\bWORD\b" -> expansion substitution, applied in order.
type abbrevRule struct {
	pattern *regexp.Regexp
	replace string
}

var abbrevRules = buildAbbrevRules([][2]string{
	{`av`, "avenida"},
	{`avda`, "avenida"},
	{`dpto`, "departamento"},
	{`dep`, "departamento"},
	{`bv`, "boulevard"},
	{`blvd`, "boulevard"},
	{`cjal`, "concejal"},
	{`gral`, "general"},
	{`gte`, "gente"},
	{`pje`, "pasaje"},
	{`pas`, "pasaje"},
	{`sdte`, "subdelegado"},
	{`pte`, "presidente"},
	{`dr`, "doctor"},
	{`sam`, "san martin"},
	{`prov`, "provincia"},
	{`loc`, "localidad"},
	{`hdez`, "hernandez"},
	{`fdez`, "fernandez"},
	{`fco`, "francisco"},
	{`jse`, "jose"},
})

func buildAbbrevRules(pairs [][2]string) []abbrevRule {
	rules := make([]abbrevRule, 0, len(pairs))
	for _, p := range pairs {
		rules = append(rules, abbrevRule{
			pattern: regexp.MustCompile(`(?i)\b` + p[0] + `\b`),
			replace: p[1],
		})
	}
	return rules
}

type cityAlias struct {
	pattern *regexp.Regexp
	replace string
}

var cityAliases = []cityAlias{
	{regexp.MustCompile(`(?i)\bCIUDAD DE MENDOZA\b`), "MENDOZA"},
	{regexp.MustCompile(`(?i)\bCIUDAD\b`), "MENDOZA"},
	{regexp.MustCompile(`(?i)\bCAPITAL\b`), "MENDOZA"},
	{regexp.MustCompile(`(?i)\bMZA\b`), "MENDOZA"},
	{regexp.MustCompile(`(?i)\bGCR\b`), "GODOY CRUZ"},
	{regexp.MustCompile(`(?i)\bGUAYMALLEN\b`), "GUAYMALLÉN"},
	{regexp.MustCompile(`(?i)\bMAIPU\b`), "MAIPÚ"},
	{regexp.MustCompile(`(?i)\bLUJAN DE CUYO\b`), "LUJÁN DE CUYO"},
	{regexp.MustCompile(`(?i)\bLUJAN\b`), "LUJÁN DE CUYO"},
}

var whitespaceRun = regexp.MustCompile(`\s+`)
var nonWordSpace = regexp.MustCompile(`[^\w\s]`)

// stripDiacritics removes combining marks (accents) after NFD decomposition,
// e.g. "Luján" -> "Lujan".
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases, strips diacritics, expands abbreviations, and
// collapses whitespace. Used before geocoding to improve provider hit rate.
func Normalize(addr string) string {
	s := stripDiacritics(addr)
	s = strings.ToLower(strings.TrimSpace(s))
	for _, rule := range abbrevRules {
		s = rule.pattern.ReplaceAllString(s, rule.replace)
	}
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeKey produces a stable cache key: normalized, upper-cased,
// punctuation stripped, whitespace folded to single underscores.
func NormalizeKey(addr string) string {
	s := Normalize(addr)
	s = strings.ToUpper(s)
	s = nonWordSpace.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "_")
	return strings.TrimSpace(s)
}

// FixCiudadMendoza upper-cases the address and folds known locality aliases
// (CIUDAD, CAPITAL, MZA, GCR, ...) onto their canonical department name.
func FixCiudadMendoza(addr string) string {
	s := strings.ToUpper(addr)
	for _, a := range cityAliases {
		s = a.pattern.ReplaceAllString(s, a.replace)
	}
	return s
}

// ReorderComponents reformats a comma-separated address into
// "CALLE NUMERO, LOCALIDAD, MENDOZA", defaulting the locality when the
// input doesn't specify one.
func ReorderComponents(addr string, locality string) string {
	if locality == "" {
		locality = "Mendoza"
	}
	parts := strings.Split(addr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 0:
		return addr
	case 1:
		return parts[0] + ", " + locality + ", Mendoza"
	case 2:
		return parts[0] + ", " + parts[1] + ", Mendoza"
	default:
		return parts[0] + ", " + parts[1] + ", Mendoza"
	}
}
