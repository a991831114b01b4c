package table

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldReplacer covers letters NFKD does not decompose (dotless i, sharp s,
// ligatures) plus the common Turkish set so results do not depend on the
// Unicode tables alone.
var foldReplacer = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "i̇", "i", "ö", "o", "ş", "s", "ü", "u",
	"â", "a", "î", "i", "û", "u",
	"á", "a", "à", "a", "ä", "a", "å", "a", "ã", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ø", "o",
	"ú", "u", "ù", "u",
	"ñ", "n", "ß", "ss", "æ", "ae", "œ", "oe",
)

var (
	spaceRun      = regexp.MustCompile(`\s+`)
	nonWord       = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRun = regexp.MustCompile(`_{2,}`)
)

// NormalizeHeader canonicalizes a column header:
// "  Ürün Adı " -> "urun_adi", "Stok Giriş Tarihi" -> "stok_giris_tarihi".
func NormalizeHeader(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	s = spaceRun.ReplaceAllString(s, "_")
	s = foldReplacer.Replace(s)
	s = stripMarks(s)
	s = nonWord.ReplaceAllString(s, "")
	s = underscoreRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unnamed"
	}
	return s
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// DedupeHeaders keeps the first occurrence of a name and suffixes later
// collisions with the lowest free _1, _2, ... preserving column order.
func DedupeHeaders(headers []string) []string {
	// Suffixes never reuse a name that appears anywhere in the input.
	reserved := make(map[string]bool, len(headers))
	for _, h := range headers {
		reserved[h] = true
	}
	used := make(map[string]bool, len(headers))
	next := make(map[string]int, len(headers))
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if !used[h] {
			used[h] = true
			out = append(out, h)
			continue
		}
		name := h
		for used[name] || reserved[name] {
			next[h]++
			name = h + "_" + strconv.Itoa(next[h])
		}
		used[name] = true
		out = append(out, name)
	}
	return out
}
