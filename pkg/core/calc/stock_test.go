package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_insight/pkg/core/table"
)

var observed = date(2024, 6, 1)

type stockRow struct {
	brand, product, segment string
	age                     int
}

func stockInput(t *testing.T, rows []stockRow, withProduct, withSegment bool) StockInput {
	t.Helper()
	headers := []string{"Stok Giriş Tarihi", "Marka"}
	if withProduct {
		headers = append(headers, "Ürün")
	}
	if withSegment {
		headers = append(headers, "Segment")
	}
	var cells [][]string
	for _, r := range rows {
		row := []string{observed.AddDate(0, 0, -r.age).Format("2006-01-02"), r.brand}
		if withProduct {
			row = append(row, r.product)
		}
		if withSegment {
			row = append(row, r.segment)
		}
		cells = append(cells, row)
	}
	st := table.NewRawTable("stock", headers, cells).Normalized()
	cols, err := table.Resolve(st, table.StockFields)
	require.NoError(t, err)
	return StockInput{Stock: st, Cols: cols, ObservedOn: observed}
}

func TestBucketOf_Partition(t *testing.T) {
	tests := []struct {
		days int
		want AgingBucket
	}{
		{-1, BucketUnknown},
		{0, BucketUnknown},
		{29, BucketUnknown},
		{30, Bucket1to3},
		{90, Bucket1to3},
		{91, Bucket3to6},
		{180, Bucket3to6},
		{181, Bucket6to9},
		{270, Bucket6to9},
		{271, Bucket9to12},
		{365, Bucket9to12},
		{366, Bucket12to24},
		{730, Bucket12to24},
		{731, Bucket24Plus},
		{100000, Bucket24Plus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketOf(tt.days), "days=%d", tt.days)
	}

	// Every age from 30 upwards lands in exactly one canonical bucket and
	// buckets appear in canonical order.
	prev := 0
	for d := 30; d <= 1000; d++ {
		r := BucketOf(d).rank()
		require.Less(t, r, len(Buckets), "days=%d", d)
		require.GreaterOrEqual(t, r, prev, "days=%d", d)
		prev = r
	}
}

func TestAggregateStock_BucketCounts(t *testing.T) {
	rows := []stockRow{
		{brand: "A", age: 10},
		{brand: "A", age: 100},
		{brand: "B", age: 200},
		{brand: "B", age: 400},
		{brand: "C", age: 800},
	}
	m := AggregateStock(stockInput(t, rows, false, false))
	require.False(t, m.Empty)

	assert.Equal(t, map[AgingBucket]int{
		BucketUnknown: 1,
		Bucket3to6:    1,
		Bucket6to9:    1,
		Bucket12to24:  1,
		Bucket24Plus:  1,
	}, m.BucketCounts)
	assert.Zero(t, m.BucketCounts[Bucket1to3])
	assert.Zero(t, m.BucketCounts[Bucket9to12])
	assert.Equal(t, 5, m.Total)
	assert.Nil(t, m.SegmentPivot)
}

func TestAggregateStock_PivotsAreCanonical(t *testing.T) {
	rows := []stockRow{
		{brand: "Zeta", segment: "TV", age: 40},
		{brand: "Alpha", segment: "Audio", age: 800},
		{brand: "Alpha", segment: "TV", age: 810},
		{brand: "Alpha", segment: "TV", age: 5},
	}
	m := AggregateStock(stockInput(t, rows, false, true))

	for _, p := range []*Pivot{m.BrandPivot, m.SegmentPivot} {
		require.NotNil(t, p)
		assert.Equal(t, Buckets, p.Rows)
		require.Len(t, p.Cells, 6)
		for _, row := range p.Cells {
			assert.Len(t, row, len(p.Series))
		}
	}
	assert.Equal(t, []string{"Alpha", "Zeta"}, m.BrandPivot.Series)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 2}, m.BrandPivot.Column("Alpha"))
	assert.Equal(t, []int{1, 0, 0, 0, 0, 0}, m.BrandPivot.Column("Zeta"))
	assert.Equal(t, 1, m.SegmentPivot.Count(Bucket24Plus, "TV"))
	assert.Equal(t, 0, m.SegmentPivot.Count(Bucket3to6, "Audio"))
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, m.BrandPivot.Column("Missing"))
}

func TestAggregateStock_EmptyPivotStillHasAllBuckets(t *testing.T) {
	st := table.NewRawTable("stock", []string{"Stok Giriş Tarihi", "Marka"}, [][]string{{"garbage", "A"}}).Normalized()
	cols, err := table.Resolve(st, table.StockFields)
	require.NoError(t, err)

	m := AggregateStock(StockInput{Stock: st, Cols: cols, ObservedOn: observed})
	assert.True(t, m.Empty)
	assert.Equal(t, 1, m.DroppedRows)
	assert.Equal(t, Buckets, m.BrandPivot.Rows)
	assert.Len(t, m.Warnings, 2)
}

func TestAggregateStock_FocusBand(t *testing.T) {
	t.Run("tie favors 12-24", func(t *testing.T) {
		m := AggregateStock(stockInput(t, []stockRow{{brand: "A", age: 400}, {brand: "B", age: 800}}, false, false))
		assert.Equal(t, Band12to24, m.FocusBand)
	})
	t.Run("24+ must be strictly larger", func(t *testing.T) {
		m := AggregateStock(stockInput(t, []stockRow{
			{brand: "A", age: 400}, {brand: "B", age: 800}, {brand: "B", age: 900},
		}, false, false))
		assert.Equal(t, Band24Plus, m.FocusBand)
		assert.Equal(t, 1, m.Total12to24)
		assert.Equal(t, 2, m.Total24Plus)
	})
}

func TestAggregateStock_TopBandTieUsesCanonicalOrder(t *testing.T) {
	m := AggregateStock(stockInput(t, []stockRow{
		{brand: "A", age: 5}, {brand: "A", age: 6},
		{brand: "A", age: 800}, {brand: "A", age: 801},
		{brand: "A", age: 100}, {brand: "A", age: 101},
	}, false, false))
	assert.Equal(t, Bucket3to6, m.TopBand)
	assert.Equal(t, 2, m.TopBandCount)
}

func TestAggregateStock_BandLeadersWithTies(t *testing.T) {
	rows := []stockRow{
		{brand: "Orion", product: "P1", segment: "TV", age: 800},
		{brand: "Orion", product: "P1", segment: "TV", age: 900},
		{brand: "Acme", product: "P2", segment: "TV", age: 850},
		{brand: "Acme", product: "P3", segment: "Audio", age: 1200},
		{brand: "Beta", product: "P4", segment: "Audio", age: 760},
		{brand: "Beta", product: "P4", segment: "Audio", age: 500},
	}
	m := AggregateStock(stockInput(t, rows, true, true))

	lb := m.Leaders24Plus
	assert.Equal(t, 5, lb.Total)
	assert.Equal(t, []string{"Acme", "Orion"}, lb.Brand.Leaders)
	assert.Equal(t, 2, lb.Brand.LeaderCount)
	assert.Equal(t, 1, lb.Brand.SecondCount)
	require.NotEmpty(t, lb.Products)
	assert.Equal(t, "Orion – P1", lb.Products[0].Label())
	require.NotEmpty(t, lb.Segments)
	assert.Equal(t, []string{"Orion", "TV"}, lb.Segments[0].Parts)

	assert.Equal(t, 1, m.Leaders12to24.Total)
	assert.Equal(t, []string{"Beta"}, m.Leaders12to24.Brand.Leaders)
	assert.Zero(t, m.Leaders12to24.Brand.SecondCount)

	require.NotNil(t, m.Oldest)
	assert.Equal(t, "Acme", m.Oldest.Brand)
	assert.Equal(t, "P3", m.Oldest.Product)
	assert.Equal(t, 1200, m.Oldest.AgeDays)

	require.NotNil(t, m.OldestSegment)
	assert.Equal(t, "Audio", m.OldestSegment.Name)
	assert.InDelta(t, 980.0, m.OldestSegment.MeanAge, 1e-9)
}

func TestAggregateStock_LeaderListsCapAtTen(t *testing.T) {
	var rows []stockRow
	for i := 0; i < 12; i++ {
		rows = append(rows, stockRow{brand: string(rune('A' + i)), age: 800})
	}
	m := AggregateStock(stockInput(t, rows, false, false))
	assert.Len(t, m.Leaders24Plus.Brands, 10)
	assert.Len(t, m.Leaders24Plus.Brand.Leaders, 10)
	assert.Nil(t, m.Leaders24Plus.Products)
}

func TestAggregateStock_OldestIsFirstMaximum(t *testing.T) {
	m := AggregateStock(stockInput(t, []stockRow{
		{brand: "First", age: 900}, {brand: "Second", age: 900},
	}, false, false))
	assert.Equal(t, "First", m.Oldest.Brand)
}

func TestAggregateStock_Extras(t *testing.T) {
	rows := []stockRow{
		{brand: "A", product: "X", segment: "TV", age: 40},
		{brand: "A", product: "X", segment: "TV", age: 60},
		{brand: "B", product: "Y", segment: "Audio", age: 50},
		{brand: "B", product: "Y", segment: "TV", age: 200},
		{brand: "B", product: "Y", segment: "TV", age: 800},
	}
	m := AggregateStock(stockInput(t, rows, true, true))

	require.Len(t, m.YoungerBandTops, 2)
	first := m.YoungerBandTops[0]
	assert.Equal(t, Bucket1to3, first.Bucket)
	assert.Equal(t, "A – X", first.Label())
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, 3, first.Total)
	assert.InDelta(t, 66.7, first.Share, 1e-9)
	assert.InDelta(t, 50.0, first.MedianAge, 1e-9)
	assert.Equal(t, Bucket6to9, m.YoungerBandTops[1].Bucket)

	require.NotNil(t, m.TopSegment)
	assert.Equal(t, "TV", m.TopSegment.Label())
	assert.Equal(t, 4, m.TopSegment.Count)
	assert.InDelta(t, 80.0, m.TopSegment.Share, 1e-9)
	assert.InDelta(t, 130.0, m.TopSegment.MedianAge, 1e-9)

	require.NotNil(t, m.TopProduct)
	assert.Equal(t, "B – Y", m.TopProduct.Label())
	assert.InDelta(t, 60.0, m.TopProduct.Share, 1e-9)
	assert.InDelta(t, 200.0, m.TopProduct.MedianAge, 1e-9)
}

func TestAggregateStock_NegativeAgeIsUnknown(t *testing.T) {
	m := AggregateStock(stockInput(t, []stockRow{{brand: "A", age: -3}}, false, false))
	assert.Equal(t, 1, m.BucketCounts[BucketUnknown])
	assert.Equal(t, BucketUnknown, m.TopBand)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, m.BrandPivot.Column("A"))
}

func TestSummarize(t *testing.T) {
	c := newCounter()
	c.add(3, "b")
	c.add(3, "a")
	c.add(2, "c")
	c.add(2, "d")
	c.add(1, "e")
	c.add(5, "")

	s := Summarize(c.ranked())
	assert.Equal(t, []string{"a", "b"}, s.Leaders)
	assert.Equal(t, 3, s.LeaderCount)
	assert.Equal(t, 2, s.SecondCount)
	assert.Equal(t, "e", s.Bottom)
	assert.Equal(t, 1, s.BottomCount)

	assert.Equal(t, LeaderSummary{}, Summarize(nil))
}

func TestMedian(t *testing.T) {
	assert.Zero(t, median(nil))
	assert.InDelta(t, 2.0, median([]int{3, 1, 2}), 1e-9)
	assert.InDelta(t, 2.5, median([]int{4, 1, 3, 2}), 1e-9)
}
