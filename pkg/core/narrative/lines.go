package narrative

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"sales_insight/pkg/core/utils"
)

// =============================================================================
// EXTRACTION
// =============================================================================

var htmlHint = regexp.MustCompile(`(?i)<(li|p|ol|ul|br)\b`)

// extractLines splits a reply into candidate lines. JSON lists and HTML
// lists are unwrapped first; anything else is split on newlines.
func extractLines(raw string) []string {
	s := utils.CleanMarkdown(raw)
	if s == "" {
		return nil
	}
	if utils.LooksLikeJSON(s) {
		if items, err := utils.ParseItems(s); err == nil {
			return splitNonBlank(strings.Join(items, "\n"))
		}
	}
	if htmlHint.MatchString(s) {
		if items := htmlItems(s); len(items) > 0 {
			return items
		}
	}
	return splitNonBlank(s)
}

func htmlItems(s string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return nil
	}
	var out []string
	for _, sel := range []string{"li", "p"} {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			if t := strings.Join(strings.Fields(el.Text()), " "); t != "" {
				out = append(out, t)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return splitNonBlank(doc.Text())
}

func splitNonBlank(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// =============================================================================
// CLEANING
// =============================================================================

var (
	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]+\s+|\d+[.)]\s*)`)
	itemPrefix   = regexp.MustCompile(`(?i)^\s*(?:item|madde)\s*\d*\s*[:\-]\s*`)
)

const quoteChars = "\"'“”‘’"

func labelPattern(labels []string) *regexp.Regexp {
	if len(labels) == 0 {
		return nil
	}
	alts := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(l), ":-"))
		if l != "" {
			alts = append(alts, regexp.QuoteMeta(l))
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)^\s*(?:` + strings.Join(alts, "|") + `)\s*[:\-]\s*`)
}

// cleanLine removes list markers, wrapping quotes, inline markdown and
// label prefixes.
func cleanLine(l string, labels *regexp.Regexp) string {
	s := bulletPrefix.ReplaceAllString(l, "")
	s = strings.Trim(strings.TrimSpace(s), quoteChars)
	s = utils.PlainText(s)
	s = strings.Trim(strings.TrimSpace(s), quoteChars)
	for {
		next := itemPrefix.ReplaceAllString(s, "")
		if labels != nil {
			next = labels.ReplaceAllString(next, "")
		}
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func applyRewrites(l string, rewrites []Rewrite) string {
	for _, rw := range rewrites {
		l = compileFold(rw.Pattern).ReplaceAllLiteralString(l, rw.Replacement)
	}
	return l
}

func ensureSentence(l string) string {
	l = strings.TrimSpace(l)
	if l == "" {
		return l
	}
	if strings.ContainsAny(l[len(l)-1:], ".!?") {
		return l
	}
	return l + "."
}

// sentenceMarks is a coarse sentence count: every '.', '!' and '?'.
func sentenceMarks(l string) int {
	return strings.Count(l, ".") + strings.Count(l, "!") + strings.Count(l, "?")
}

// =============================================================================
// LEADER CLAIMS AND RISK WORDING
// =============================================================================

// correctLeader rewrites a leader claim that names no real leader by
// swapping the first other brand it mentions for the first leader.
func correctLeader(l string, claim *regexp.Regexp, leaders, brands []string) string {
	if !claim.MatchString(l) {
		return l
	}
	for _, ldr := range leaders {
		if indexWord(l, ldr) >= 0 {
			return l
		}
	}
	isLeader := make(map[string]bool, len(leaders))
	for _, ldr := range leaders {
		isLeader[ldr] = true
	}
	for _, b := range byLength(brands) {
		if isLeader[b] {
			continue
		}
		if i := indexWord(l, b); i >= 0 {
			return l[:i] + leaders[0] + l[i+len(b):]
		}
	}
	return l
}

func addRiskClause(l string, claim, words *regexp.Regexp, leaders []string, clause string) string {
	if words.MatchString(l) {
		return l
	}
	cites := claim != nil && claim.MatchString(l)
	for _, ldr := range leaders {
		if cites {
			break
		}
		cites = indexWord(l, ldr) >= 0
	}
	if !cites {
		return l
	}
	return strings.TrimRight(l, ".!? ") + clause
}

// indexWord finds w in s where it is not glued to other letters or digits.
func indexWord(s, w string) int {
	return indexWordFrom(s, w, 0)
}

// indexWordFrom is indexWord starting at byte offset from; boundaries are
// checked against the whole of s.
func indexWordFrom(s, w string, from int) int {
	if w == "" || from > len(s) {
		return -1
	}
	for {
		i := strings.Index(s[from:], w)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(w)
		before, _ := utf8.DecodeLastRuneInString(s[:i])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (i == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return i
		}
		from = i + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// byLength orders names longest first so a name is matched before any
// shorter name it contains.
func byLength(names []string) []string {
	out := append([]string(nil), names...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && utf8.RuneCountInString(out[j]) > utf8.RuneCountInString(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// =============================================================================
// MENTION CAP
// =============================================================================

// capMentions keeps the first limit whole-word occurrences of each entity,
// scanning lines in order, and replaces the rest with the entity's
// placeholder.
func capMentions(lines []string, entities []Entity, limit int) []string {
	if limit <= 0 || len(entities) == 0 {
		return lines
	}
	placeholder := make(map[string]string, len(entities))
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.Name == "" {
			continue
		}
		if _, dup := placeholder[e.Name]; dup {
			continue
		}
		placeholder[e.Name] = e.Placeholder
		names = append(names, e.Name)
	}

	out := append([]string(nil), lines...)
	for _, name := range byLength(names) {
		seen := 0
		for i, l := range out {
			var b strings.Builder
			pos := 0
			for {
				j := indexWordFrom(l, name, pos)
				if j < 0 {
					b.WriteString(l[pos:])
					break
				}
				b.WriteString(l[pos:j])
				seen++
				if seen <= limit {
					b.WriteString(name)
				} else {
					b.WriteString(placeholder[name])
				}
				pos = j + len(name)
			}
			out[i] = b.String()
		}
	}
	return out
}

// =============================================================================
// NUMBER GROUPING
// =============================================================================

// GroupNumbers inserts thousands separators into integers of four or more
// digits that are directly followed by one of units. Percentages, years
// and numbers that are already grouped or part of a decimal are left
// alone, so the transform is idempotent.
func GroupNumbers(s string, units []string, g utils.Grouper) string {
	if len(units) == 0 {
		return s
	}
	re := unitPattern(units)
	return re.ReplaceAllStringFunc(s, func(m string) string {
		sub := re.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[2])
		if err != nil {
			return m
		}
		return sub[1] + g.Int(n) + sub[3] + sub[4]
	})
}

func unitPattern(units []string) *regexp.Regexp {
	alts := make([]string, 0, len(units))
	for _, u := range byLength(units) {
		alts = append(alts, regexp.QuoteMeta(u))
	}
	return regexp.MustCompile(`(^|[^\d.,_\p{L}])(\d{4,})(\s*)(` + strings.Join(alts, "|") + `)\b`)
}
