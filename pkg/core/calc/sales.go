package calc

import (
	"fmt"
	"math"
	"sort"
	"time"

	"sales_insight/pkg/core/table"

	"github.com/shopspring/decimal"
)

// PeriodMetric is one month of actuals joined with its target.
// CompletionRate is SalesQuantity/TargetQuantity*100 when the target
// quantity is positive, otherwise 0.
type PeriodMetric struct {
	Period         Period   `json:"period"`
	SalesQuantity  int      `json:"sales_quantity"`
	SalesRevenue   float64  `json:"sales_revenue"`
	TargetQuantity *int     `json:"target_quantity"`
	TargetRevenue  *float64 `json:"target_revenue"`
	CompletionRate float64  `json:"completion_rate"`
}

// ProductTotal is a product's quantity over the filtered window.
type ProductTotal struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SegmentShare is a segment's quantity and percentage share of the total.
type SegmentShare struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Share    float64 `json:"share"`
}

// Trend summarizes the last periods of the monthly series.
type Trend struct {
	LastQuantity int     `json:"last_quantity"`
	LastRevenue  float64 `json:"last_revenue"`
	// Previous-period values and month-over-month change need two periods.
	PrevQuantity *int     `json:"prev_quantity"`
	PrevRevenue  *float64 `json:"prev_revenue"`
	MoMDelta     *int     `json:"mom_delta"`
	MoMPercent   *float64 `json:"mom_percent"`
	// Three-period moving averages fall back to the latest value.
	MovingAvgQuantity int     `json:"moving_avg_quantity"`
	MovingAvgRevenue  float64 `json:"moving_avg_revenue"`
	Direction         string  `json:"direction"`
}

// CompletionWindow describes the remaining quota of the last period.
type CompletionWindow struct {
	Period            Period    `json:"period"`
	PeriodEnd         time.Time `json:"period_end"`
	Closed            bool      `json:"closed"`
	RemainingQuantity int       `json:"remaining_quantity"`
	RemainingDays     int       `json:"remaining_days"`
	RequiredDailyRate float64   `json:"required_daily_rate"`
}

// PeriodPerformance is a single period's completion against target.
type PeriodPerformance struct {
	Period Period  `json:"period"`
	Rate   float64 `json:"rate"`
	Gap    int     `json:"gap"`
}

// SalesMetrics is everything the prompt and the narrative validator need
// about a sales run.
type SalesMetrics struct {
	Periods       []PeriodMetric `json:"periods"`
	Products      []ProductTotal `json:"products"`
	Top           *ProductTotal  `json:"top"`
	Bottom        *ProductTotal  `json:"bottom"`
	TotalQuantity int            `json:"total_quantity"`
	TotalRevenue  float64        `json:"total_revenue"`
	TopShare      float64        `json:"top_share"`

	Trend  Trend            `json:"trend"`
	Window CompletionWindow `json:"window"`

	HasSegment    bool          `json:"has_segment"`
	TopSegment    *SegmentShare `json:"top_segment"`
	BottomSegment *SegmentShare `json:"bottom_segment"`

	Best               *PeriodPerformance `json:"best"`
	Worst              *PeriodPerformance `json:"worst"`
	UnderTargetPeriods int                `json:"under_target_periods"`

	Today       time.Time `json:"today"`
	DroppedRows int       `json:"dropped_rows"`
	Warnings    []string  `json:"warnings"`
}

// Last returns the most recent period metric.
func (m *SalesMetrics) Last() PeriodMetric {
	return m.Periods[len(m.Periods)-1]
}

// SalesInput bundles resolved tables and the reporting window. A zero
// Start or End leaves that side of the window open.
type SalesInput struct {
	Sales      *table.RawTable
	SalesCols  table.ColumnMap
	Targets    *table.RawTable
	TargetCols table.ColumnMap
	Start      Period
	End        Period
	Today      time.Time
}

type saleRow struct {
	product string
	segment string
	date    time.Time
	revenue decimal.Decimal
}

type monthAcc struct {
	quantity int
	revenue  decimal.Decimal
}

type target struct {
	quantity *int
	revenue  *float64
}

// AggregateSales computes the monthly actual-vs-target series and the
// derived leaders, trend and completion figures. It returns
// *table.EmptyDatasetError when no dated rows exist or none fall inside
// the window.
func AggregateSales(in SalesInput) (*SalesMetrics, error) {
	today := dayOf(in.Today)
	m := &SalesMetrics{Today: today, HasSegment: in.SalesCols.Has(table.FieldSegment)}

	rows, drops := parseSales(in)
	m.DroppedRows = len(drops)
	if len(drops) > 0 {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%d sales rows dropped (first: %v)", len(drops), drops[0]))
	}
	if len(rows) == 0 {
		return nil, &table.EmptyDatasetError{Table: in.Sales.Name, Reason: "no rows with a valid date"}
	}

	rows = filterWindow(rows, in.Start, in.End)
	if len(rows) == 0 {
		return nil, &table.EmptyDatasetError{Table: in.Sales.Name, Reason: "no sales in the selected date range"}
	}

	// Monthly series, ascending.
	months := make(map[Period]*monthAcc)
	products := newCounter()
	segments := newCounter()
	total := decimal.Zero
	for _, r := range rows {
		p := PeriodOf(r.date)
		acc, ok := months[p]
		if !ok {
			acc = &monthAcc{revenue: decimal.Zero}
			months[p] = acc
		}
		acc.quantity++
		acc.revenue = acc.revenue.Add(r.revenue)
		total = total.Add(r.revenue)
		products.add(1, r.product)
		if m.HasSegment {
			segments.add(1, r.segment)
		}
	}
	keys := make([]Period, 0, len(months))
	for p := range months {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	targets := buildTargets(in.Targets, in.TargetCols)
	for _, p := range keys {
		acc := months[p]
		pm := PeriodMetric{
			Period:        p,
			SalesQuantity: acc.quantity,
			SalesRevenue:  acc.revenue.InexactFloat64(),
		}
		if t, ok := targets[p]; ok {
			pm.TargetQuantity = t.quantity
			pm.TargetRevenue = t.revenue
		}
		pm.CompletionRate = completionRate(pm.SalesQuantity, pm.TargetQuantity)
		m.Periods = append(m.Periods, pm)
	}

	m.TotalQuantity = len(rows)
	m.TotalRevenue = total.InexactFloat64()

	ranked := products.ranked()
	for _, c := range ranked {
		m.Products = append(m.Products, ProductTotal{Name: c.Key, Quantity: c.Count})
	}
	if len(m.Products) > 0 {
		top := m.Products[0]
		bottom := m.Products[len(m.Products)-1]
		m.Top, m.Bottom = &top, &bottom
		m.TopShare = share(top.Quantity, m.TotalQuantity)
	}

	if m.HasSegment {
		segRanked := segments.ranked()
		if len(segRanked) > 0 {
			first, last := segRanked[0], segRanked[len(segRanked)-1]
			m.TopSegment = &SegmentShare{Name: first.Key, Quantity: first.Count, Share: share(first.Count, m.TotalQuantity)}
			m.BottomSegment = &SegmentShare{Name: last.Key, Quantity: last.Count, Share: share(last.Count, m.TotalQuantity)}
		}
	}

	m.Trend = computeTrend(m.Periods)
	m.Window = completionWindow(m.Last(), today)
	m.Best, m.Worst, m.UnderTargetPeriods = performance(m.Periods)

	if n := inconsistentPrices(rows); n > 0 {
		m.Warnings = append(m.Warnings, fmt.Sprintf(
			"price inconsistency: %d product-month groups carry more than one revenue value; unit price should be constant within a month", n))
	}
	return m, nil
}

func parseSales(in SalesInput) ([]saleRow, []*table.DateParseError) {
	productCol := in.SalesCols.Column(table.FieldProduct)
	dateCol := in.SalesCols.Column(table.FieldDate)
	revenueCol := in.SalesCols.Column(table.FieldRevenue)
	segmentCol := in.SalesCols.Column(table.FieldSegment)

	var (
		rows  []saleRow
		drops []*table.DateParseError
	)
	for i := 0; i < in.Sales.Len(); i++ {
		raw := in.Sales.Value(i, dateCol)
		d, ok := table.ParseDate(raw)
		if !ok {
			drops = append(drops, &table.DateParseError{Row: i + 1, Value: raw})
			continue
		}
		r := saleRow{
			product: in.Sales.Value(i, productCol),
			date:    d,
			revenue: table.ParseAmount(in.Sales.Value(i, revenueCol)),
		}
		if segmentCol != "" {
			r.segment = in.Sales.Value(i, segmentCol)
		}
		rows = append(rows, r)
	}
	return rows, drops
}

func filterWindow(rows []saleRow, start, end Period) []saleRow {
	var out []saleRow
	for _, r := range rows {
		if !start.IsZero() && r.date.Before(start.Start()) {
			continue
		}
		if !end.IsZero() && r.date.After(end.End()) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// buildTargets resolves target rows to periods; unresolvable rows are
// dropped and a later row for the same period replaces an earlier one.
func buildTargets(t *table.RawTable, cols table.ColumnMap) map[Period]target {
	out := make(map[Period]target)
	if t == nil {
		return out
	}
	labelCol := cols.Column(table.FieldPeriodLabel)
	yearCol := cols.Column(table.FieldPeriodYear)
	qtyCol := cols.Column(table.FieldTargetQuantity)
	revCol := cols.Column(table.FieldTargetRevenue)

	for i := 0; i < t.Len(); i++ {
		p, ok := ResolvePeriod(t.Value(i, labelCol), t.Value(i, yearCol))
		if !ok {
			continue
		}
		var tg target
		if q, ok := table.ParseOptionalNumber(t.Value(i, qtyCol)); ok {
			qi := int(math.Round(q))
			tg.quantity = &qi
		}
		if r, ok := table.ParseOptionalNumber(t.Value(i, revCol)); ok {
			tg.revenue = &r
		}
		out[p] = tg
	}
	return out
}

func completionRate(actual int, target *int) float64 {
	if target == nil || *target <= 0 {
		return 0
	}
	return float64(actual) / float64(*target) * 100
}

func computeTrend(periods []PeriodMetric) Trend {
	n := len(periods)
	last := periods[n-1]
	tr := Trend{
		LastQuantity:      last.SalesQuantity,
		LastRevenue:       last.SalesRevenue,
		MovingAvgQuantity: last.SalesQuantity,
		MovingAvgRevenue:  last.SalesRevenue,
		Direction:         "undetermined",
	}
	if n >= 2 {
		prev := periods[n-2]
		pq, pr := prev.SalesQuantity, prev.SalesRevenue
		delta := last.SalesQuantity - pq
		pct := 0.0
		if pq != 0 {
			pct = float64(delta) / float64(pq) * 100
		}
		tr.PrevQuantity, tr.PrevRevenue = &pq, &pr
		tr.MoMDelta, tr.MoMPercent = &delta, &pct
		switch {
		case delta > 0:
			tr.Direction = "rising"
		case delta < 0:
			tr.Direction = "falling"
		default:
			tr.Direction = "flat"
		}
	}
	if n >= 3 {
		window := periods[n-3:]
		var q, r float64
		for _, p := range window {
			q += float64(p.SalesQuantity)
			r += p.SalesRevenue
		}
		tr.MovingAvgQuantity = int(math.RoundToEven(q / 3))
		tr.MovingAvgRevenue = math.RoundToEven(r / 3)
	}
	return tr
}

func completionWindow(last PeriodMetric, today time.Time) CompletionWindow {
	w := CompletionWindow{Period: last.Period, PeriodEnd: last.Period.End()}
	if w.PeriodEnd.Before(today) {
		w.Closed = true
		return w
	}
	tq := 0
	if last.TargetQuantity != nil {
		tq = *last.TargetQuantity
	}
	w.RemainingQuantity = max(tq-last.SalesQuantity, 0)
	w.RemainingDays = max(int(w.PeriodEnd.Sub(today).Hours()/24), 1)
	if w.RemainingQuantity > 0 {
		w.RequiredDailyRate = round2(float64(w.RemainingQuantity) / float64(w.RemainingDays))
	}
	return w
}

// performance picks the first best and first worst completion periods.
func performance(periods []PeriodMetric) (best, worst *PeriodPerformance, under int) {
	for _, p := range periods {
		if p.CompletionRate < 100 {
			under++
		}
		tq := 0
		if p.TargetQuantity != nil {
			tq = *p.TargetQuantity
		}
		perf := PeriodPerformance{Period: p.Period, Rate: p.CompletionRate, Gap: tq - p.SalesQuantity}
		if best == nil || perf.Rate > best.Rate {
			b := perf
			best = &b
		}
		if worst == nil || perf.Rate < worst.Rate {
			w := perf
			worst = &w
		}
	}
	return best, worst, under
}

// inconsistentPrices counts (product, year, month) groups with more than
// one distinct revenue value.
func inconsistentPrices(rows []saleRow) int {
	type key struct {
		product string
		period  Period
	}
	distinct := make(map[key]map[string]struct{})
	for _, r := range rows {
		k := key{product: r.product, period: PeriodOf(r.date)}
		if distinct[k] == nil {
			distinct[k] = make(map[string]struct{})
		}
		distinct[k][r.revenue.String()] = struct{}{}
	}
	n := 0
	for _, vals := range distinct {
		if len(vals) > 1 {
			n++
		}
	}
	return n
}

// PeriodPace returns the per-period figures persisted with each record:
// average daily quantity over the elapsed days of the period, and the daily
// rate still required to reach the target (zero once the period closed).
func PeriodPace(pm PeriodMetric, today time.Time) (dailyAverage, requiredDaily float64) {
	today = dayOf(today)
	start, end := pm.Period.Start(), pm.Period.End()

	elapsed := pm.Period.Days()
	if !end.Before(today) {
		elapsed = int(today.Sub(start).Hours()/24) + 1
	}
	if elapsed > 0 {
		dailyAverage = round2(float64(pm.SalesQuantity) / float64(elapsed))
	}

	if end.Before(today) || pm.TargetQuantity == nil {
		return dailyAverage, 0
	}
	remaining := max(*pm.TargetQuantity-pm.SalesQuantity, 0)
	days := max(int(end.Sub(today).Hours()/24), 1)
	return dailyAverage, round2(float64(remaining) / float64(days))
}

func dayOf(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
