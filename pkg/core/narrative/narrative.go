// Package narrative turns a generative service reply into a report that
// always meets its structural contract: item count, sentence density,
// terminal punctuation, mention caps and number formatting. Validate is
// pure and deterministic; missing or unusable replies are replaced by
// template lines built from the computed metrics.
package narrative

import (
	"fmt"
	"regexp"
	"strings"

	"sales_insight/pkg/core/utils"
)

// Config controls one validation run.
type Config struct {
	MinItems     int `yaml:"min_items"`
	MaxItems     int `yaml:"max_items"` // 0 means no cap
	MinSentences int `yaml:"min_sentences"`
	MentionCap   int `yaml:"mention_cap"`

	// Labels are prefixes removed from the start of a line, matched
	// case-insensitively and followed by ":" or "-".
	Labels []string `yaml:"labels"`
	// Rewrites replace banned phrasing before filtering.
	Rewrites []Rewrite `yaml:"rewrites"`
	// RequiredMarkers must each appear as "<marker>:" for a reply line to
	// survive. Each entry is a regexp alternation such as "Target|Hedef".
	RequiredMarkers []string `yaml:"required_markers"`
	// RiskClause is appended to lines that name a risk-tracked entity
	// without any RiskWords.
	RiskClause string `yaml:"risk_clause"`
	RiskWords  string `yaml:"risk_words"`
	// LeaderClaim matches lines that claim which brand leads; such lines
	// must name a real leader.
	LeaderClaim string `yaml:"leader_claim"`

	Units  []string `yaml:"units"`
	Locale string   `yaml:"locale"`
}

// Rewrite is a case-insensitive pattern replacement.
type Rewrite struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// DefaultUnits are the tokens that mark a number as an amount.
var DefaultUnits = []string{"TL", "USD", "EUR", "units", "pcs", "adet"}

// SalesConfig requires exactly ten items.
func SalesConfig() Config {
	return Config{
		MinItems:     10,
		MaxItems:     10,
		MinSentences: 3,
		MentionCap:   2,
		Labels: []string{
			"Recommendation", "Solution", "Target", "Action", "Note", "Duration",
			"Öneri", "Çözüm", "Süre", "Hedef", "Aksiyon", "Not",
		},
		Units:  DefaultUnits,
		Locale: "en",
	}
}

// StockConfig requires at least six liquidation items with a target and a
// reason each. Labels are limited to headings so the markers survive.
func StockConfig() Config {
	return Config{
		MinItems:     6,
		MinSentences: 3,
		MentionCap:   4,
		Labels: []string{
			"Oldest single item", "Band accumulation", "Most items in the 24+ band",
			"Highest mean age in the 24+ band", "En uzun bekleyen tekil ürün", "Zaman bandı birikmesi",
		},
		Rewrites: []Rewrite{
			{Pattern: `increas(?:e|ing) (?:the )?assortment`, Replacement: "liquidating existing 12-24mo and 24+mo stock"},
			{Pattern: `add(?:ing)? new products?`, Replacement: "clearing aged stock quickly"},
			{Pattern: `expand(?:ing)? the product range`, Replacement: "SKU reduction and consolidation"},
			{Pattern: `increas(?:e|ing) (?:the )?stock(?: levels?)?`, Replacement: "lowering aged stock levels"},
			{Pattern: `ürün çeşitliliğini art(?:tır|ır)(?:mak)?`, Replacement: "mevcut 12-24/24+ stokları likide etmek"},
			{Pattern: `yeni ürün(?:ler)? ekle(?:mek)?`, Replacement: "yaşlı stokları hızla eritmek"},
			{Pattern: `stok(?:u|ları|lar[ıi]) art(?:tır|ır)(?:mak)?`, Replacement: "yaşlı stok seviyesini düşürmek"},
		},
		RequiredMarkers: []string{"Target|Hedef", "Reason|Gerekçe"},
		RiskClause:      "; this accumulation also raises carrying cost and value-loss risk, so liquidation takes priority.",
		RiskWords:       `accumulat|risk|liquidat|carrying cost|value loss|birikme|likidasyon`,
		LeaderClaim:     `24\+.*\bmost\b.*\bbrand|24\+\s*ay.*en\s*çok.*sahip.*marka`,
		Units:           DefaultUnits,
		Locale:          "en",
	}
}

// Entity is a tracked name and the phrase that replaces it past the cap.
type Entity struct {
	Name        string
	Placeholder string
}

// Facts is what the validator knows about the metrics behind a reply.
type Facts struct {
	// Fallbacks are appended in order when too few reply lines survive.
	Fallbacks []string
	// Extras are always appended after fallbacks.
	Extras   []string
	Entities []Entity
	// Leaders are the brands a leader claim must name; Brands is every
	// brand that may be swapped for a leader.
	Leaders []string
	Brands  []string
}

// Report is the validated narrative.
type Report struct {
	Lines    []string `json:"lines"`
	Kept     int      `json:"kept"`
	Fallback int      `json:"fallback"`
	Extras   int      `json:"extras"`
}

// Text joins the numbered lines.
func (r Report) Text() string {
	return strings.Join(r.Lines, "\n")
}

// Validate applies every stage to raw and returns the final report.
func Validate(raw string, facts Facts, cfg Config) Report {
	lines := extractLines(raw)

	labels := labelPattern(cfg.Labels)
	lines = mapLines(lines, func(l string) string { return cleanLine(l, labels) })
	lines = mapLines(lines, func(l string) string { return applyRewrites(l, cfg.Rewrites) })
	if cfg.LeaderClaim != "" && len(facts.Leaders) > 0 {
		claim := compileFold(cfg.LeaderClaim)
		lines = mapLines(lines, func(l string) string { return correctLeader(l, claim, facts.Leaders, facts.Brands) })
	}
	lines = mapLines(lines, ensureSentence)
	lines = filterLines(lines, func(l string) bool { return sentenceMarks(l) >= cfg.MinSentences })
	for _, marker := range cfg.RequiredMarkers {
		re := compileFold(`(?:` + marker + `)\s*:`)
		lines = filterLines(lines, re.MatchString)
	}
	if cfg.RiskClause != "" && len(facts.Leaders) > 0 {
		words := compileFold(cfg.RiskWords)
		var claim *regexp.Regexp
		if cfg.LeaderClaim != "" {
			claim = compileFold(cfg.LeaderClaim)
		}
		lines = mapLines(lines, func(l string) string { return addRiskClause(l, claim, words, facts.Leaders, cfg.RiskClause) })
	}

	rep := Report{Kept: len(lines)}
	for _, fb := range facts.Fallbacks {
		if len(lines) >= cfg.MinItems {
			break
		}
		lines = append(lines, fb)
		rep.Fallback++
	}
	lines = append(lines, facts.Extras...)
	rep.Extras = len(facts.Extras)

	lines = capMentions(lines, facts.Entities, cfg.MentionCap)
	lines = mapLines(lines, ensureSentence)

	g := utils.NewGrouper(cfg.Locale)
	units := cfg.Units
	if len(units) == 0 {
		units = DefaultUnits
	}
	lines = mapLines(lines, func(l string) string { return GroupNumbers(l, units, g) })

	if cfg.MaxItems > 0 && len(lines) > cfg.MaxItems {
		lines = lines[:cfg.MaxItems]
	}
	rep.Lines = renumber(lines)
	return rep
}

func mapLines(lines []string, fn func(string) string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(fn(l)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func filterLines(lines []string, keep func(string) bool) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func renumber(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%d) %s", i+1, l)
	}
	return out
}

// compileFold compiles a configured pattern case-insensitively. An invalid
// pattern matches nothing.
func compileFold(pattern string) *regexp.Regexp {
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return regexp.MustCompile(`[^\x00-\x{10FFFF}]`)
	}
	return re
}
