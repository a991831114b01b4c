package calc

import "sort"

// AgingBucket labels how long an item has been held in stock.
type AgingBucket string

const (
	Bucket1to3   AgingBucket = "1-3mo"
	Bucket3to6   AgingBucket = "3-6mo"
	Bucket6to9   AgingBucket = "6-9mo"
	Bucket9to12  AgingBucket = "9-12mo"
	Bucket12to24 AgingBucket = "12-24mo"
	Bucket24Plus AgingBucket = "24+mo"

	// BucketUnknown holds ages no bucket covers: negative ages (entry date
	// after the observation date) and items younger than 30 days. It is
	// never part of Buckets.
	BucketUnknown AgingBucket = "Unknown"
)

// Buckets is the canonical chart order.
var Buckets = []AgingBucket{Bucket1to3, Bucket3to6, Bucket6to9, Bucket9to12, Bucket12to24, Bucket24Plus}

var bucketBounds = []struct {
	bucket   AgingBucket
	min, max int
}{
	{Bucket1to3, 30, 90},
	{Bucket3to6, 91, 180},
	{Bucket6to9, 181, 270},
	{Bucket9to12, 271, 365},
	{Bucket12to24, 366, 730},
}

// BucketOf assigns an age in days to its bucket. Ranges are inclusive.
func BucketOf(days int) AgingBucket {
	if days > 730 {
		return Bucket24Plus
	}
	for _, b := range bucketBounds {
		if days >= b.min && days <= b.max {
			return b.bucket
		}
	}
	return BucketUnknown
}

// rank returns the canonical position of b; Unknown sorts last.
func (b AgingBucket) rank() int {
	for i, c := range Buckets {
		if c == b {
			return i
		}
	}
	return len(Buckets)
}

// Pivot counts items per (bucket, series) cell. Rows always follow
// Buckets; series are sorted ascending and every cell is present.
type Pivot struct {
	Rows   []AgingBucket `json:"rows"`
	Series []string      `json:"series"`
	Cells  [][]int       `json:"cells"`
}

func newPivot(counts map[AgingBucket]map[string]int) *Pivot {
	seen := make(map[string]struct{})
	for _, bySeries := range counts {
		for s := range bySeries {
			seen[s] = struct{}{}
		}
	}
	series := make([]string, 0, len(seen))
	for s := range seen {
		series = append(series, s)
	}
	sort.Strings(series)

	p := &Pivot{Rows: append([]AgingBucket(nil), Buckets...), Series: series}
	p.Cells = make([][]int, len(p.Rows))
	for i, b := range p.Rows {
		p.Cells[i] = make([]int, len(series))
		for j, s := range series {
			p.Cells[i][j] = counts[b][s]
		}
	}
	return p
}

// Count returns the cell for (bucket, series), zero when absent.
func (p *Pivot) Count(b AgingBucket, series string) int {
	for i, row := range p.Rows {
		if row != b {
			continue
		}
		for j, s := range p.Series {
			if s == series {
				return p.Cells[i][j]
			}
		}
	}
	return 0
}

// Column returns one series across all canonical buckets.
func (p *Pivot) Column(series string) []int {
	out := make([]int, len(p.Rows))
	for j, s := range p.Series {
		if s != series {
			continue
		}
		for i := range p.Rows {
			out[i] = p.Cells[i][j]
		}
	}
	return out
}
