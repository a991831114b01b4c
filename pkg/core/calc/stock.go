package calc

import (
	"fmt"
	"math"
	"sort"
	"time"

	"sales_insight/pkg/core/table"
)

// Old-band names used for the focus band.
const (
	Band12to24 = "12-24mo"
	Band24Plus = "24+mo"
)

// StockItem is a single stock row after date parsing.
type StockItem struct {
	Brand   string      `json:"brand"`
	Product string      `json:"product,omitempty"`
	Segment string      `json:"segment,omitempty"`
	AgeDays int         `json:"age_days"`
	Bucket  AgingBucket `json:"bucket"`
}

// BandLeaders ranks one age band by brand and, where resolved, by
// brand×product and brand×segment. Each list keeps at most ten entries.
type BandLeaders struct {
	Band     string        `json:"band"`
	Total    int           `json:"total"`
	Brands   []Count       `json:"brands"`
	Products []Count       `json:"products,omitempty"`
	Segments []Count       `json:"segments,omitempty"`
	Brand    LeaderSummary `json:"brand_summary"`
}

// SegmentAge is the segment with the highest mean age inside a band.
type SegmentAge struct {
	Name    string  `json:"name"`
	MeanAge float64 `json:"mean_age"`
	Count   int     `json:"count"`
}

// GroupShare is a grouped entry with its share of a population and the
// median age of its items.
type GroupShare struct {
	Bucket    AgingBucket `json:"bucket,omitempty"`
	Parts     []string    `json:"parts"`
	Count     int         `json:"count"`
	Total     int         `json:"total"`
	Share     float64     `json:"share"`
	MedianAge float64     `json:"median_age"`
}

// Label joins the group parts for display.
func (g GroupShare) Label() string {
	return Count{Parts: g.Parts}.Label()
}

// StockMetrics is the aging analysis of one stock table.
type StockMetrics struct {
	ObservedOn  time.Time `json:"observed_on"`
	Empty       bool      `json:"empty"`
	Total       int       `json:"total"`
	DroppedRows int       `json:"dropped_rows"`
	HasSegment  bool      `json:"has_segment"`
	HasProduct  bool      `json:"has_product"`

	// BucketCounts includes BucketUnknown when any age falls outside the
	// canonical buckets.
	BucketCounts map[AgingBucket]int `json:"bucket_counts"`
	SegmentPivot *Pivot              `json:"segment_pivot,omitempty"`
	BrandPivot   *Pivot              `json:"brand_pivot"`

	Total12to24  int         `json:"total_12_24"`
	Total24Plus  int         `json:"total_24_plus"`
	FocusBand    string      `json:"focus_band"`
	TopBand      AgingBucket `json:"top_band"`
	TopBandCount int         `json:"top_band_count"`

	Leaders12to24 BandLeaders `json:"leaders_12_24"`
	Leaders24Plus BandLeaders `json:"leaders_24_plus"`

	Oldest        *StockItem  `json:"oldest"`
	OldestSegment *SegmentAge `json:"oldest_segment"`

	YoungerBandTops []GroupShare `json:"younger_band_tops"`
	TopSegment      *GroupShare  `json:"top_segment"`
	TopProduct      *GroupShare  `json:"top_product"`

	Warnings []string `json:"warnings"`
}

// StockInput bundles the resolved stock table and the observation date.
type StockInput struct {
	Stock      *table.RawTable
	Cols       table.ColumnMap
	ObservedOn time.Time
}

// AggregateStock buckets every dated row by age and derives the band
// leaders and extremes. A table with no dated rows yields Empty metrics
// rather than an error.
func AggregateStock(in StockInput) *StockMetrics {
	m := &StockMetrics{
		ObservedOn:   dayOf(in.ObservedOn),
		HasSegment:   in.Cols.Has(table.FieldSegment),
		HasProduct:   in.Cols.Has(table.FieldProduct),
		BucketCounts: make(map[AgingBucket]int),
	}

	items, drops := parseStock(in, m.ObservedOn)
	m.DroppedRows = len(drops)
	if len(drops) > 0 {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%d stock rows dropped (first: %v)", len(drops), drops[0]))
	}
	if len(items) == 0 {
		m.Empty = true
		m.BrandPivot = newPivot(nil)
		if m.HasSegment {
			m.SegmentPivot = newPivot(nil)
		}
		m.Warnings = append(m.Warnings, "no stock rows with a valid entry date")
		return m
	}
	m.Total = len(items)

	bySegment := make(map[AgingBucket]map[string]int)
	byBrand := make(map[AgingBucket]map[string]int)
	var band12, band24 []StockItem
	for i, it := range items {
		m.BucketCounts[it.Bucket]++
		if it.Bucket != BucketUnknown {
			bump(byBrand, it.Bucket, it.Brand)
			if m.HasSegment {
				bump(bySegment, it.Bucket, it.Segment)
			}
		}
		switch {
		case it.AgeDays > 730:
			band24 = append(band24, it)
		case it.AgeDays > 365:
			band12 = append(band12, it)
		}
		if m.Oldest == nil || it.AgeDays > m.Oldest.AgeDays {
			m.Oldest = &items[i]
		}
	}
	m.BrandPivot = newPivot(byBrand)
	if m.HasSegment {
		m.SegmentPivot = newPivot(bySegment)
	}

	m.Total12to24, m.Total24Plus = len(band12), len(band24)
	m.FocusBand = Band12to24
	if m.Total24Plus > m.Total12to24 {
		m.FocusBand = Band24Plus
	}
	m.TopBand, m.TopBandCount = topBand(m.BucketCounts)

	m.Leaders12to24 = bandLeaders(Band12to24, band12, m.HasProduct, m.HasSegment)
	m.Leaders24Plus = bandLeaders(Band24Plus, band24, m.HasProduct, m.HasSegment)
	if m.HasSegment {
		m.OldestSegment = oldestSegment(band24)
	}

	if m.HasProduct {
		for _, b := range []AgingBucket{Bucket1to3, Bucket3to6, Bucket6to9, Bucket9to12} {
			var sub []StockItem
			for _, it := range items {
				if it.Bucket == b {
					sub = append(sub, it)
				}
			}
			if g := topGroup(sub, productKey); g != nil {
				g.Bucket = b
				m.YoungerBandTops = append(m.YoungerBandTops, *g)
			}
		}
		m.TopProduct = topGroup(items, productKey)
	}
	if m.HasSegment {
		m.TopSegment = topGroup(items, func(it StockItem) []string { return []string{it.Segment} })
	}
	return m
}

func parseStock(in StockInput, observed time.Time) ([]StockItem, []*table.DateParseError) {
	dateCol := in.Cols.Column(table.FieldEntryDate)
	brandCol := in.Cols.Column(table.FieldBrand)
	productCol := in.Cols.Column(table.FieldProduct)
	segmentCol := in.Cols.Column(table.FieldSegment)

	var (
		items []StockItem
		drops []*table.DateParseError
	)
	for i := 0; i < in.Stock.Len(); i++ {
		raw := in.Stock.Value(i, dateCol)
		entry, ok := table.ParseDate(raw)
		if !ok {
			drops = append(drops, &table.DateParseError{Row: i + 1, Value: raw})
			continue
		}
		age := int(math.Floor(observed.Sub(entry).Hours() / 24))
		it := StockItem{
			Brand:   in.Stock.Value(i, brandCol),
			AgeDays: age,
			Bucket:  BucketOf(age),
		}
		if productCol != "" {
			it.Product = in.Stock.Value(i, productCol)
		}
		if segmentCol != "" {
			it.Segment = in.Stock.Value(i, segmentCol)
		}
		items = append(items, it)
	}
	return items, drops
}

func bump(m map[AgingBucket]map[string]int, b AgingBucket, series string) {
	if series == "" {
		return
	}
	if m[b] == nil {
		m[b] = make(map[string]int)
	}
	m[b][series]++
}

// topBand picks the fullest bucket; canonical order breaks ties and
// Unknown loses every tie.
func topBand(counts map[AgingBucket]int) (AgingBucket, int) {
	candidates := append(append([]AgingBucket(nil), Buckets...), BucketUnknown)
	best, bestCount := AgingBucket(""), 0
	for _, b := range candidates {
		if counts[b] > bestCount {
			best, bestCount = b, counts[b]
		}
	}
	return best, bestCount
}

func productKey(it StockItem) []string {
	return []string{it.Brand, it.Product}
}

func bandLeaders(band string, items []StockItem, hasProduct, hasSegment bool) BandLeaders {
	bl := BandLeaders{Band: band, Total: len(items)}
	brands, products, segments := newCounter(), newCounter(), newCounter()
	for _, it := range items {
		brands.add(1, it.Brand)
		if hasProduct {
			products.add(1, it.Brand, it.Product)
		}
		if hasSegment {
			segments.add(1, it.Brand, it.Segment)
		}
	}
	bl.Brands = topN(brands.ranked(), 10)
	bl.Brand = Summarize(bl.Brands)
	if hasProduct {
		bl.Products = topN(products.ranked(), 10)
	}
	if hasSegment {
		bl.Segments = topN(segments.ranked(), 10)
	}
	return bl
}

// oldestSegment returns the segment with the highest mean age; equal means
// resolve to the alphabetically first segment.
func oldestSegment(items []StockItem) *SegmentAge {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, it := range items {
		if it.Segment == "" {
			continue
		}
		sums[it.Segment] += it.AgeDays
		counts[it.Segment]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	var best *SegmentAge
	for _, n := range names {
		mean := float64(sums[n]) / float64(counts[n])
		if best == nil || mean > best.MeanAge {
			best = &SegmentAge{Name: n, MeanAge: mean, Count: counts[n]}
		}
	}
	return best
}

// topGroup ranks items by key and describes the leader within items.
func topGroup(items []StockItem, key func(StockItem) []string) *GroupShare {
	c := newCounter()
	for _, it := range items {
		c.add(1, key(it)...)
	}
	ranked := c.ranked()
	if len(ranked) == 0 {
		return nil
	}
	top := ranked[0]

	var ages []int
	for _, it := range items {
		if sameParts(key(it), top.Parts) {
			ages = append(ages, it.AgeDays)
		}
	}
	return &GroupShare{
		Parts:     top.Parts,
		Count:     top.Count,
		Total:     len(items),
		Share:     share(top.Count, len(items)),
		MedianAge: median(ages),
	}
}

func sameParts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
