package prompt

import (
	"fmt"
	"strings"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/utils"
)

// Rules are the output constraints written into a narrative prompt.
type Rules struct {
	Items        int
	MinSentences int
	MentionCap   int
	Banned       []string
	Labels       []string
	Units        []string
	Currency     string
}

// DefaultSalesRules asks for exactly ten items.
func DefaultSalesRules() Rules {
	return Rules{
		Items:        10,
		MinSentences: 3,
		MentionCap:   2,
		Banned:       []string{"strategies should be developed", "measures should be taken", "it is important to improve"},
		Labels:       []string{"Recommendation:", "Solution:", "Target:", "Action:", "Note:"},
		Units:        []string{"TL", "units"},
		Currency:     "TL",
	}
}

// DefaultStockRules asks for at least six liquidation items.
func DefaultStockRules() Rules {
	return Rules{
		Items:        6,
		MinSentences: 3,
		MentionCap:   4,
		Banned:       []string{"increase assortment", "add new products", "expand the product range", "increase stock"},
		Units:        []string{"units", "TL"},
		Currency:     "TL",
	}
}

var salesTopics = []string{
	"trend over the selected months",
	"target versus actual, and the last period against the previous one",
	"best and worst selling products in a single item",
	"strategy one: pricing, campaigns and stock priority",
	"strategy two: channel return, visibility and search, bundles",
	"segment analysis with the strongest and weakest segment, count and share",
	"a data-backed decline in a product or segment with a concrete action",
	"a high-selling product or segment that can still grow, with a campaign and channel plan",
	"a low-selling product or segment with a pricing, visibility or bundle strategy",
	"a forecast for next month and the action plan that follows from it",
}

var stockTopics = []string{
	"the oldest single item (product, brand, days) with a clear action",
	"the brand or brands holding the most items in the 24+ band, with the gap to the next brand; accumulation is a risk",
	"the segment with the highest mean age in the 24+ band, if any",
	"the fullest aging band and why it accumulated",
	"at least two further brand or segment comparisons",
}

// Composer renders metrics into prompt payloads. Output depends only on its
// inputs: slices are walked in their computed order and no map is ranged.
type Composer struct {
	registry *Registry
	sales    Rules
	stock    Rules
	num      utils.Grouper
}

// NewComposer builds a composer over a prompt registry.
func NewComposer(r *Registry, sales, stock Rules, locale string) *Composer {
	return &Composer{registry: r, sales: sales, stock: stock, num: utils.NewGrouper(locale)}
}

// ComposeSales renders the sales prompt with the built-in templates and
// default rules.
func ComposeSales(m *calc.SalesMetrics) (Payload, error) {
	r, err := Default()
	if err != nil {
		return Payload{}, err
	}
	return NewComposer(r, DefaultSalesRules(), DefaultStockRules(), "en").Sales(m)
}

// ComposeStock renders the stock prompt with the built-in templates and
// default rules.
func ComposeStock(m *calc.StockMetrics) (Payload, error) {
	r, err := Default()
	if err != nil {
		return Payload{}, err
	}
	return NewComposer(r, DefaultSalesRules(), DefaultStockRules(), "en").Stock(m)
}

func (c *Composer) render(id string, data interface{}) (Payload, error) {
	pt, err := c.registry.GetPrompt(id)
	if err != nil {
		return Payload{}, err
	}
	user, err := RenderUserPrompt(pt, data)
	if err != nil {
		return Payload{}, err
	}
	return Payload{System: pt.SystemPrompt, User: user}, nil
}

type salesView struct {
	Items, MinSentences, MentionCap int
	Banned, Labels, Units, Topics   []string
	GroupingExample                 string

	Top, Bottom, TopShare string
	Products              []string
	Direction, MoM        string
	MovingAvg             string
	Closed                bool
	Remaining             string
	Segments              string
	Best, Worst           string
	UnderTarget           string
	Total                 string
	Periods               []string
}

// Sales renders the sales narrative prompt.
func (c *Composer) Sales(m *calc.SalesMetrics) (Payload, error) {
	r := c.sales
	v := salesView{
		Items:           r.Items,
		MinSentences:    r.MinSentences,
		MentionCap:      r.MentionCap,
		Banned:          r.Banned,
		Labels:          r.Labels,
		Units:           r.Units,
		Topics:          salesTopics,
		GroupingExample: c.num.Int(10200200) + " " + r.Currency,
		TopShare:        c.num.Fixed(m.TopShare, 1),
		Direction:       m.Trend.Direction,
		Closed:          m.Window.Closed,
		Top:             "none",
		Bottom:          "none",
		MoM:             "not available (single period)",
	}
	if m.Top != nil {
		v.Top = fmt.Sprintf("%s (%s units)", m.Top.Name, c.num.Int(m.Top.Quantity))
		v.Bottom = fmt.Sprintf("%s (%s units)", m.Bottom.Name, c.num.Int(m.Bottom.Quantity))
	}
	for i, p := range m.Products {
		v.Products = append(v.Products, fmt.Sprintf("%d. %s: %s units", i+1, p.Name, c.num.Int(p.Quantity)))
	}
	if m.Trend.MoMDelta != nil {
		v.MoM = fmt.Sprintf("%+d units (%s%%)", *m.Trend.MoMDelta, c.signed(*m.Trend.MoMPercent))
	}
	v.MovingAvg = fmt.Sprintf("%s units / %s %s", c.num.Int(m.Trend.MovingAvgQuantity), c.num.Round(m.Trend.MovingAvgRevenue), r.Currency)
	if !m.Window.Closed {
		v.Remaining = fmt.Sprintf("%s units / %d days / %s units per day",
			c.num.Int(m.Window.RemainingQuantity), m.Window.RemainingDays, c.num.Fixed(m.Window.RequiredDailyRate, 2))
	}
	if m.TopSegment != nil {
		v.Segments = fmt.Sprintf("strongest %s (%s units, %s%%), weakest %s (%s units, %s%%)",
			m.TopSegment.Name, c.num.Int(m.TopSegment.Quantity), c.num.Fixed(m.TopSegment.Share, 1),
			m.BottomSegment.Name, c.num.Int(m.BottomSegment.Quantity), c.num.Fixed(m.BottomSegment.Share, 1))
	}
	if m.Best != nil {
		v.Best = fmt.Sprintf("%s at %s%%", m.Best.Period, c.num.Fixed(m.Best.Rate, 1))
		v.Worst = fmt.Sprintf("%s at %s%% (%s units short)", m.Worst.Period, c.num.Fixed(m.Worst.Rate, 1), c.num.Int(m.Worst.Gap))
	}
	v.UnderTarget = fmt.Sprintf("%d of %d", m.UnderTargetPeriods, len(m.Periods))
	v.Total = fmt.Sprintf("%s units, %s %s", c.num.Int(m.TotalQuantity), c.num.Round(m.TotalRevenue), r.Currency)

	for _, p := range m.Periods {
		tq, tr := 0, 0.0
		if p.TargetQuantity != nil {
			tq = *p.TargetQuantity
		}
		if p.TargetRevenue != nil {
			tr = *p.TargetRevenue
		}
		v.Periods = append(v.Periods, fmt.Sprintf("%s: quantity=%s/%s, revenue=%s/%s %s, completion=%s%%",
			p.Period, c.num.Int(p.SalesQuantity), c.num.Int(tq),
			c.num.Round(p.SalesRevenue), c.num.Round(tr), r.Currency, c.num.Fixed(p.CompletionRate, 1)))
	}
	return c.render(SalesNarrativeID, v)
}

func (c *Composer) signed(v float64) string {
	s := c.num.Fixed(v, 1)
	if v >= 0 {
		return "+" + s
	}
	return s
}

type stockTable struct {
	Title, Body string
}

type stockView struct {
	Items, MinSentences, MentionCap int
	Banned, Units, Topics           []string
	GroupingExample                 string

	ObservedOn                       string
	Total, Total12to24, Total24Plus  string
	FocusBand, TopBand               string
	Leaders24, Oldest, OldestSegment string
	BucketCounts                     string
	YoungerTops                      []string
	TopSegment, TopProduct           string
	BrandPivot, SegmentPivot         string
	Tables                           []stockTable
}

// Stock renders the stock aging prompt.
func (c *Composer) Stock(m *calc.StockMetrics) (Payload, error) {
	r := c.stock
	v := stockView{
		Items:           r.Items,
		MinSentences:    r.MinSentences,
		MentionCap:      r.MentionCap,
		Banned:          r.Banned,
		Units:           r.Units,
		Topics:          stockTopics,
		GroupingExample: c.num.Int(10200200) + " units",
		ObservedOn:      m.ObservedOn.Format("2006-01-02"),
		Total:           c.num.Int(m.Total),
		Total12to24:     c.num.Int(m.Total12to24),
		Total24Plus:     c.num.Int(m.Total24Plus),
		FocusBand:       m.FocusBand,
		TopBand:         fmt.Sprintf("%s (%s units)", m.TopBand, c.num.Int(m.TopBandCount)),
		Leaders24:       "none",
		Oldest:          "none",
		OldestSegment:   "no segment column",
		BucketCounts:    c.bucketText(m.BucketCounts),
		TopSegment:      "no segment column",
		TopProduct:      "no product column",
		BrandPivot:      c.pivotText(m.BrandPivot),
	}
	for _, t := range m.YoungerBandTops {
		v.YoungerTops = append(v.YoungerTops, string(t.Bucket)+": "+c.describeShare(t))
	}
	if t := m.TopSegment; t != nil {
		v.TopSegment = c.describeShare(*t)
	}
	if t := m.TopProduct; t != nil {
		v.TopProduct = c.describeShare(*t)
	}
	if s := m.Leaders24Plus.Brand; len(s.Leaders) > 0 {
		v.Leaders24 = fmt.Sprintf("%s (%s units; next brand %s units)",
			strings.Join(s.Leaders, ", "), c.num.Int(s.LeaderCount), c.num.Int(s.SecondCount))
	}
	if o := m.Oldest; o != nil {
		v.Oldest = c.describeItem(o)
	}
	if m.HasSegment {
		v.OldestSegment = "none in the 24+ band"
		if seg := m.OldestSegment; seg != nil {
			v.OldestSegment = fmt.Sprintf("%s (mean %s days, %s units)", seg.Name, c.num.Round(seg.MeanAge), c.num.Int(seg.Count))
		}
		if m.SegmentPivot != nil && len(m.SegmentPivot.Series) > 0 {
			v.SegmentPivot = c.pivotText(m.SegmentPivot)
		}
	}

	for _, bl := range []calc.BandLeaders{m.Leaders12to24, m.Leaders24Plus} {
		v.Tables = append(v.Tables, stockTable{Title: bl.Band + " | most units by brand", Body: c.countsText(bl.Brands)})
		if m.HasProduct {
			v.Tables = append(v.Tables, stockTable{Title: bl.Band + " | most units by brand x product", Body: c.countsText(bl.Products)})
		}
		if m.HasSegment {
			v.Tables = append(v.Tables, stockTable{Title: bl.Band + " | most units by brand x segment", Body: c.countsText(bl.Segments)})
		}
	}
	return c.render(StockNarrativeID, v)
}

func (c *Composer) describeItem(it *calc.StockItem) string {
	parts := []string{"brand " + it.Brand}
	if it.Product != "" {
		parts = append(parts, "product "+it.Product)
	}
	if it.Segment != "" {
		parts = append(parts, "segment "+it.Segment)
	}
	return fmt.Sprintf("%s, waiting %s days", strings.Join(parts, ", "), c.num.Int(it.AgeDays))
}

// describeShare renders "Acme – P1 (3 of 10 units, 30.0%, median age 45 days)".
func (c *Composer) describeShare(g calc.GroupShare) string {
	return fmt.Sprintf("%s (%s of %s units, %s%%, median age %s days)",
		g.Label(), c.num.Int(g.Count), c.num.Int(g.Total), c.num.Fixed(g.Share, 1), c.num.Round(g.MedianAge))
}

// bucketText lists every canonical bucket, plus Unknown when present.
func (c *Composer) bucketText(counts map[calc.AgingBucket]int) string {
	parts := make([]string, 0, len(calc.Buckets)+1)
	for _, b := range calc.Buckets {
		parts = append(parts, fmt.Sprintf("%s: %s", b, c.num.Int(counts[b])))
	}
	if n := counts[calc.BucketUnknown]; n > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", calc.BucketUnknown, c.num.Int(n)))
	}
	return strings.Join(parts, ", ")
}

func (c *Composer) countsText(counts []calc.Count) string {
	if len(counts) == 0 {
		return "none"
	}
	var b strings.Builder
	for i, cnt := range counts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", cnt.Label(), c.num.Int(cnt.Count))
	}
	return b.String()
}

func (c *Composer) pivotText(p *calc.Pivot) string {
	if p == nil || len(p.Series) == 0 {
		return "none"
	}
	var b strings.Builder
	b.WriteString("band | " + strings.Join(p.Series, " | "))
	for i, row := range p.Rows {
		b.WriteString("\n" + string(row))
		for _, n := range p.Cells[i] {
			b.WriteString(" | " + c.num.Int(n))
		}
	}
	return b.String()
}

type reminderView struct {
	Subject, Mode, Period, Deadline string
}

// Reminder renders the missing-upload reminder prompt.
func (c *Composer) Reminder(subject, mode, period, deadline string) (Payload, error) {
	return c.render(UploadReminderID, reminderView{Subject: subject, Mode: mode, Period: period, Deadline: deadline})
}
