package geafin

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

const tagNumberLength = 10

// NFKD also decomposes the ordinal indicators (ª, º) the exports are fond of.
var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKey canonicalizes free text for table lookups: mojibake repair,
// accent stripping, uppercasing, and separator collapsing. The folding is
// byte-deterministic; no locale-dependent collation is involved.
func foldKey(value string) string {
	repaired := RepairMojibake(value)

	stripped, _, err := transform.String(accentStripper, repaired)
	if err != nil {
		stripped = repaired
	}

	var b strings.Builder
	b.Grow(len(stripped))
	lastSpace := true
	for _, r := range strings.ToUpper(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// unitAliases maps folded unit spellings seen in historical GEAFIN exports
// to canonical units.
var unitAliases = map[string]enums.Unit{
	"1":                  enums.UnitFirst,
	"01":                 enums.UnitFirst,
	"1A":                 enums.UnitFirst,
	"1A AUD":             enums.UnitFirst,
	"1A AUDITORIA":       enums.UnitFirst,
	"PRIMEIRA AUDITORIA": enums.UnitFirst,
	"2":                  enums.UnitSecond,
	"02":                 enums.UnitSecond,
	"2A":                 enums.UnitSecond,
	"2A AUD":             enums.UnitSecond,
	"2A AUDITORIA":       enums.UnitSecond,
	"SEGUNDA AUDITORIA":  enums.UnitSecond,
	"3":                  enums.UnitThird,
	"03":                 enums.UnitThird,
	"3A":                 enums.UnitThird,
	"3A AUD":             enums.UnitThird,
	"3A AUDITORIA":       enums.UnitThird,
	"TERCEIRA AUDITORIA": enums.UnitThird,
	"4":                  enums.UnitFourth,
	"04":                 enums.UnitFourth,
	"4A":                 enums.UnitFourth,
	"4A AUD":             enums.UnitFourth,
	"4A AUDITORIA":       enums.UnitFourth,
	"QUARTA AUDITORIA":   enums.UnitFourth,
}

// unitKeywords is ordered: ambiguous text naming several units always
// resolves to the lowest-numbered one.
var unitKeywords = []struct {
	unit     enums.Unit
	keywords []string
}{
	{enums.UnitFirst, []string{"1A", "PRIMEIRA"}},
	{enums.UnitSecond, []string{"2A", "SEGUNDA"}},
	{enums.UnitThird, []string{"3A", "TERCEIRA"}},
	{enums.UnitFourth, []string{"4A", "QUARTA"}},
}

// NormalizeUnit resolves a free-text unit name into a canonical unit.
// Exact alias lookup first, then a substring heuristic over the folded
// text. Returns false when the text resolves to no unit.
func NormalizeUnit(value string) (enums.Unit, bool) {
	key := foldKey(value)
	if key == "" {
		return 0, false
	}

	if unit, ok := unitAliases[key]; ok {
		return unit, true
	}

	if strings.Contains(key, "AUD") {
		for _, entry := range unitKeywords {
			for _, kw := range entry.keywords {
				if strings.Contains(key, kw) {
					return entry.unit, true
				}
			}
		}
	}
	return 0, false
}

// NormalizeTag strips every non-digit character and enforces the
// fixed-length tag pattern. Values that do not reduce to exactly ten
// digits are rejected, never padded or truncated.
func NormalizeTag(value string) (string, error) {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	tag := digits.String()
	if len(tag) != tagNumberLength {
		return "", fmt.Errorf("tag %q normalizes to %d digits, want %d", value, len(tag), tagNumberLength)
	}
	return tag, nil
}
