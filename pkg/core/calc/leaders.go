package calc

import (
	"math"
	"sort"
	"strings"
)

const keySep = "\x1f"

// Count is one grouped entry. Parts holds the individual key values for
// multi-column groupings (brand, product); Key is their joined form.
type Count struct {
	Key   string   `json:"key"`
	Parts []string `json:"parts"`
	Count int      `json:"count"`
}

// Label renders the key for humans: "Acme – Phone X".
func (c Count) Label() string {
	return strings.Join(c.Parts, " – ")
}

// LeaderSummary describes the head and tail of a ranked grouping. All
// entries sharing the maximum count are leaders.
type LeaderSummary struct {
	Leaders     []string `json:"leaders"`
	LeaderCount int      `json:"leader_count"`
	SecondCount int      `json:"second_count"`
	Bottom      string   `json:"bottom"`
	BottomCount int      `json:"bottom_count"`
}

// counter accumulates counts per multi-part key.
type counter struct {
	counts map[string]int
	parts  map[string][]string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int), parts: make(map[string][]string)}
}

// add ignores keys with any blank part, mirroring how group-by drops
// missing values.
func (c *counter) add(n int, parts ...string) {
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return
		}
	}
	key := strings.Join(parts, keySep)
	if _, ok := c.parts[key]; !ok {
		c.parts[key] = append([]string(nil), parts...)
	}
	c.counts[key] += n
}

// ranked orders entries by count descending. Groups are first sorted by key
// ascending and the count sort is stable, so ties resolve to the
// lexicographically first key.
func (c *counter) ranked() []Count {
	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Count, 0, len(keys))
	for _, k := range keys {
		out = append(out, Count{Key: k, Parts: c.parts[k], Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Summarize extracts co-leaders, the second distinct count and the tail
// entry from an already ranked slice.
func Summarize(ranked []Count) LeaderSummary {
	var s LeaderSummary
	if len(ranked) == 0 {
		return s
	}
	s.LeaderCount = ranked[0].Count
	for _, c := range ranked {
		if c.Count == s.LeaderCount {
			s.Leaders = append(s.Leaders, c.Label())
			continue
		}
		if c.Count > s.SecondCount {
			s.SecondCount = c.Count
		}
	}
	last := ranked[len(ranked)-1]
	s.Bottom = last.Label()
	s.BottomCount = last.Count
	return s
}

func topN(ranked []Count, n int) []Count {
	var out []Count
	for _, c := range ranked {
		if c.Count <= 0 {
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

func share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
