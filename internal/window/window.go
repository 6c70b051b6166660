// Package window parses the free-text "observaciones" field on an order
// into a structured delivery window: an explicit or inferred time range,
// tagged AM/PM/none, plus a pickup flag and a "call before delivering" flag.
package window

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes how a window was derived from the text.
type Kind string

const (
	KindPickup Kind = "pickup"
	KindNormal Kind = "normal"
)

// Tag buckets a window into the morning/afternoon/unspecified slots used
// by route building to group and order stops.
type Tag string

const (
	TagAM  Tag = "AM"
	TagPM  Tag = "PM"
	TagNone Tag = "NONE"
)

const (
	amFrom  = 9 * 60  // 540
	amTo    = 13*60 + 0
	pmFrom  = 14*60 + 0
	pmTo    = 18*60 + 0
)

// Result is the parsed delivery window for one order.
type Result struct {
	Kind         Kind
	DesdeMin     int
	HastaMin     int
	Tag          Tag
	LlamarAntes  bool
	RawText      string
}

var (
	// \bRETIRA\b (not RETIRO_RETIRAR(?!R) lookahead, which RE2 can't express)
	// already excludes "RETIRAR" — \b requires a non-word boundary right
	// after the match, and "RETIRAR" has a word char ('R') there.
	rePickup = regexp.MustCompile(`(?i)\b(?:RETIRA(?:\s+POR|\s+EN)?\s*(?:COMERCIAL|DEP[OÓ]SITO|LOCAL|TIENDA|SUCURSAL)?|SE\s+RETIRA|RETIRO\s+CLIENTE|PASA\s+A\s+RETIRAR)\b`)
	reRange  = regexp.MustCompile(`(\d{1,2}:\d{2})\s*[–-]\s*(\d{1,2}:\d{2})`)
	reDesde  = regexp.MustCompile(`(?i)(?:DESDE\s+LAS|A\s+PARTIR\s+DE)\s+(\d{1,2}:\d{2})`)
	reHasta  = regexp.MustCompile(`(?i)HASTA\s+LAS\s+(\d{1,2}:\d{2})`)
	reManana = regexp.MustCompile(`(?i)\bMA[NÑ]ANA\b`)
	reTarde  = regexp.MustCompile(`(?i)\bTARDE\b`)
	reComercial = regexp.MustCompile(`(?i)HORARIO\s+COMERCIAL`)
	reLlamar    = regexp.MustCompile(`(?i)(?:LLAMAR|AVISAR)\s+ANTES`)
)

func parseHHMM(s string) int {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}

func rangesIntersect(aFrom, aTo, bFrom, bTo int) bool {
	return aFrom < bTo && bFrom < aTo
}

// assignAMPM tags an explicit [desde,hasta] range by how it overlaps the
// canonical AM (09:00-13:00) and PM (14:00-18:00) bands. A range that
// overlaps both bands (or neither) is left unspecified.
func assignAMPM(desdeMin, hastaMin int) Tag {
	overlapsAM := rangesIntersect(desdeMin, hastaMin, amFrom, amTo)
	overlapsPM := rangesIntersect(desdeMin, hastaMin, pmFrom, pmTo)
	switch {
	case overlapsAM && !overlapsPM:
		return TagAM
	case overlapsPM && !overlapsAM:
		return TagPM
	default:
		return TagNone
	}
}

// Parse extracts a delivery window from an order's free-text observation
// field, following a fixed priority cascade: explicit pickup mention,
// explicit HH:MM-HH:MM range, open-ended "desde"/"hasta" phrasing, vague
// "mañana"/"tarde" phrasing, "horario comercial", a call-before-delivery
// flag, and finally an unspecified window.
func Parse(text string) Result {
	llamarAntes := reLlamar.MatchString(text)

	if rePickup.MatchString(text) {
		return Result{Kind: KindPickup, DesdeMin: 0, HastaMin: 24 * 60, Tag: TagNone, LlamarAntes: llamarAntes, RawText: text}
	}

	if m := reRange.FindStringSubmatch(text); m != nil {
		desde, hasta := parseHHMM(m[1]), parseHHMM(m[2])
		return Result{Kind: KindNormal, DesdeMin: desde, HastaMin: hasta, Tag: assignAMPM(desde, hasta), LlamarAntes: llamarAntes, RawText: text}
	}

	if m := reDesde.FindStringSubmatch(text); m != nil {
		desde := parseHHMM(m[1])
		hasta := 23 * 60
		return Result{Kind: KindNormal, DesdeMin: desde, HastaMin: hasta, Tag: assignAMPM(desde, hasta), LlamarAntes: llamarAntes, RawText: text}
	}

	if m := reHasta.FindStringSubmatch(text); m != nil {
		hasta := parseHHMM(m[1])
		return Result{Kind: KindNormal, DesdeMin: 0, HastaMin: hasta, Tag: assignAMPM(0, hasta), LlamarAntes: llamarAntes, RawText: text}
	}

	if reManana.MatchString(text) {
		return Result{Kind: KindNormal, DesdeMin: 8 * 60, HastaMin: 13 * 60, Tag: TagAM, LlamarAntes: llamarAntes, RawText: text}
	}

	if reTarde.MatchString(text) {
		return Result{Kind: KindNormal, DesdeMin: 14 * 60, HastaMin: 21 * 60, Tag: TagPM, LlamarAntes: llamarAntes, RawText: text}
	}

	if reComercial.MatchString(text) {
		return Result{Kind: KindNormal, DesdeMin: 9 * 60, HastaMin: 18 * 60, Tag: TagNone, LlamarAntes: llamarAntes, RawText: text}
	}

	return Result{Kind: KindNormal, DesdeMin: 0, HastaMin: 24 * 60, Tag: TagNone, LlamarAntes: llamarAntes, RawText: text}
}

// IsWithinConfigWindow reports whether a parsed window is compatible with
// the operator-configured delivery window (hora_desde/hora_hasta). Pickup
// windows and windows with no tag are always compatible — the window system
// only constrains tagged deliveries.
func IsWithinConfigWindow(w Result, horaDesde, horaHasta string) bool {
	if w.Kind == KindPickup || w.Tag == TagNone {
		return true
	}
	configDesde := parseHHMM(horaDesde)
	configHasta := parseHHMM(horaHasta)
	return rangesIntersect(w.DesdeMin, w.HastaMin, configDesde, configHasta)
}
