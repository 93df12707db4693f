package geafin

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// The GEAFIN export is produced by a legacy system in a single-byte
// encoding. Payloads that already validate as UTF-8 are taken verbatim;
// everything else is decoded as ISO 8859-1.
func Decode(payload []byte) (string, error) {
	if utf8.Valid(payload) {
		return string(payload), nil
	}
	return charmap.ISO8859_1.NewDecoder().String(string(payload))
}

// mojibakeMarkers are the lead bytes of two-byte UTF-8 sequences for
// Latin-1 accented characters. Text that went through a UTF-8-read-as-
// Latin-1 round trip is littered with them.
var mojibakeMarkers = []rune{'Ã', 'Â', 'Ð', '�'}

func markerCount(s string) int {
	n := 0
	for _, r := range s {
		for _, m := range mojibakeMarkers {
			if r == m {
				n++
				break
			}
		}
	}
	return n
}

// RepairMojibake undoes a single UTF-8-decoded-as-Latin-1 corruption pass.
// The candidate repair re-encodes each rune as its Latin-1 byte and
// re-decodes the result as UTF-8. The repair is accepted only when it
// strictly reduces the corruption-marker count and introduces no
// replacement characters; otherwise the input is returned unchanged.
func RepairMojibake(value string) string {
	before := markerCount(value)
	if before == 0 {
		return value
	}

	raw := make([]byte, 0, len(value))
	for _, r := range value {
		if r > 0xFF {
			// not representable in Latin-1, cannot be a mojibake artifact
			return value
		}
		raw = append(raw, byte(r))
	}

	if !utf8.Valid(raw) {
		return value
	}
	repaired := string(raw)
	if strings.ContainsRune(repaired, utf8.RuneError) {
		return value
	}
	if markerCount(repaired) >= before {
		return value
	}
	return repaired
}
