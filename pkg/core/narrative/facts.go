package narrative

import (
	"fmt"
	"math"
	"strings"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/utils"
)

// Placeholders used once an entity hits the mention cap.
const (
	ProductPlaceholder = "the related product"
	SegmentPlaceholder = "the related segment"
	BrandPlaceholder   = "the related brand"
)

// SalesFacts builds the ten sales fallback lines and the tracked product
// and segment names. Every template yields a line with at least three
// sentences, so a fallback-only report is always complete.
func SalesFacts(m *calc.SalesMetrics, locale string) Facts {
	g := utils.NewGrouper(locale)
	f := Facts{}
	for _, p := range m.Products {
		f.Entities = append(f.Entities, Entity{Name: p.Name, Placeholder: ProductPlaceholder})
	}
	for _, s := range []*calc.SegmentShare{m.TopSegment, m.BottomSegment} {
		if s != nil {
			f.Entities = append(f.Entities, Entity{Name: s.Name, Placeholder: SegmentPlaceholder})
		}
	}
	if len(m.Periods) == 0 {
		return f
	}

	last := m.Last()
	tr := m.Trend
	top, bottom := "a single product", "a single product"
	topQty, bottomQty := 0, 0
	if m.Top != nil {
		top, topQty = m.Top.Name, m.Top.Quantity
		bottom, bottomQty = m.Bottom.Name, m.Bottom.Quantity
	}
	pct := func(v float64) string { return g.Fixed(v, 1) + "%" }

	// 1. trend
	mom := "Month-over-month change is not available for a single period."
	if tr.MoMPercent != nil {
		mom = fmt.Sprintf("The month-over-month change is %s.", pct(math.Abs(*tr.MoMPercent)))
	}
	f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
		"The sales trend over the selected months is %s. The three-month average is %s units with %s TL in revenue. %s",
		tr.Direction, g.Int(tr.MovingAvgQuantity), g.Round(tr.MovingAvgRevenue), mom))

	// 2. last period against the previous one
	diff := "there is no previous month to compare with"
	if tr.MoMDelta != nil {
		switch d := *tr.MoMDelta; {
		case d > 0:
			diff = fmt.Sprintf("up %s units on the previous month", g.Int(d))
		case d < 0:
			diff = fmt.Sprintf("down %s units on the previous month", g.Int(-d))
		default:
			diff = "unchanged from the previous month"
		}
	}
	f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
		"%s closed with %s units sold. The volume is %s. The change may come from seasonality, campaign timing or stock availability.",
		last.Period, g.Int(last.SalesQuantity), diff))

	// 3. leaders
	f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
		"The best-selling product is %s with %s units. The weakest product is %s with %s units. Channel visibility and price position of both should be reviewed.",
		top, g.Int(topQty), bottom, g.Int(bottomQty)))

	// 4. segments
	if m.TopSegment != nil {
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"The strongest segment is %s with %s units and a %s share. The weakest segment is %s at %s. Weak segments need sharper targeting and more visibility.",
			m.TopSegment.Name, g.Int(m.TopSegment.Quantity), pct(m.TopSegment.Share), m.BottomSegment.Name, pct(m.BottomSegment.Share)))
	} else {
		f.Fallbacks = append(f.Fallbacks,
			"No segment column was provided, so segment shares are not available. Adding one enables a strongest and weakest segment comparison. Until then product-level figures drive the plan.")
	}

	// 5. weak product action
	f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
		"Sales of %s are low. Its search visibility should be raised and it should be featured on its category page with bundle offers. A price-tier test can lift conversion without giving up margin.",
		bottom))

	// 6. revenue gap
	if last.TargetRevenue != nil {
		gap := *last.TargetRevenue - last.SalesRevenue
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"%s brought in %s TL in revenue. The revenue target for the month was %s TL, a gap of %s TL. The gap should be traced through product mix, basket size and campaign effectiveness.",
			last.Period, g.Round(last.SalesRevenue), g.Round(*last.TargetRevenue), g.Round(gap)))
	} else {
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"%s brought in %s TL in revenue. No revenue target was set for that month. Setting one makes the gap to plan measurable.",
			last.Period, g.Round(last.SalesRevenue)))
	}

	// 7. forecast
	focus := "the leading product group"
	if m.TopSegment != nil {
		focus = "the " + m.TopSegment.Name + " segment"
	}
	f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
		"If the current trend holds, next month should bring about %s units and %s TL. Investment in %s should be increased. Low performers should be supported with targeted campaigns.",
		g.Int(tr.MovingAvgQuantity), g.Round(tr.MovingAvgRevenue), focus))

	// 8. best and worst completion
	if b, w := m.Best, m.Worst; b != nil && w != nil {
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"The best completion was %s at %s. The weakest was %s at %s, %s units short of target. %d of %d periods closed under target.",
			b.Period, pct(b.Rate), w.Period, pct(w.Rate), g.Int(max(w.Gap, 0)), m.UnderTargetPeriods, len(m.Periods)))
	}

	// 9. remaining pace
	if m.Window.Closed {
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"%s is closed, so no quantity remains to be planned. The final completion rate was %s. Its lessons should feed the plan for the next month.",
			m.Window.Period, pct(last.CompletionRate)))
	} else {
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"%s units remain for %s with %d days left. That requires %s units per day. Tracking daily sales against this pace keeps the target within reach.",
			g.Int(m.Window.RemainingQuantity), m.Window.Period, m.Window.RemainingDays, g.Fixed(m.Window.RequiredDailyRate, 2)))
	}

	// 10. concentration
	f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
		"%s accounts for %s of all units sold. Total volume in the window is %s units and %s TL. High concentration should be balanced by pushing secondary products.",
		top, pct(m.TopShare), g.Int(m.TotalQuantity), g.Round(m.TotalRevenue)))

	return f
}

// StockFacts builds the liquidation fallbacks, the programmatic extras and
// the tracked brand and product names.
func StockFacts(m *calc.StockMetrics, locale string) Facts {
	g := utils.NewGrouper(locale)
	f := Facts{
		Leaders: m.Leaders24Plus.Brand.Leaders,
	}
	if m.BrandPivot != nil {
		f.Brands = m.BrandPivot.Series
	}
	seen := make(map[string]bool)
	track := func(name, placeholder string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		f.Entities = append(f.Entities, Entity{Name: name, Placeholder: placeholder})
	}
	for _, bl := range []calc.BandLeaders{m.Leaders24Plus, m.Leaders12to24} {
		for _, c := range bl.Brands {
			track(c.Key, BrandPlaceholder)
		}
		for _, c := range bl.Products {
			if len(c.Parts) > 1 {
				track(c.Parts[1], ProductPlaceholder)
			}
		}
	}
	if m.Empty {
		return f
	}

	if s := m.Leaders24Plus.Brand; len(s.Leaders) > 0 {
		next := ""
		if s.SecondCount > 0 {
			next = fmt.Sprintf("; the next brand holds %s units", g.Int(s.SecondCount))
		}
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"The brands holding the most items in the 24+ band are %s (%s units%s). Target: cut 24+ stock by %d%% within 3-4 weeks and bring its median age under 365 days. Reason: the band totals %s units with high age and slow turnover; this accumulation raises carrying cost and value-loss risk.",
			strings.Join(s.Leaders, ", "), g.Int(s.LeaderCount), next, clamp(s.LeaderCount*10, 25, 50), g.Int(m.Total24Plus)))
	}

	if m.TopBandCount > 0 {
		pct := 25
		if m.TopBand == calc.Bucket24Plus {
			pct = 30
		}
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"The %s band holds %s units, the largest accumulation. Target: reduce it by %d%% within 2-4 weeks and move the band median age down one band. Reason: this band carries more load than the others; staged discounts, campaign visibility and channel shifts can trigger demand and improve turnover.",
			m.TopBand, g.Int(m.TopBandCount), pct))
	}

	if o := m.Oldest; o != nil {
		name := o.Brand
		if o.Product != "" {
			name += " – " + o.Product
		}
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"The item waiting longest is %s at %s days and is the first liquidation candidate. Target: clear 25-35%% of it within 2-3 weeks and move it out of the 24+ band. Reason: extreme holding age raises financial carrying cost; an opportunity tag with aggressive pricing and outlet placement lifts conversion.",
			name, g.Int(o.AgeDays)))
	}

	if seg := m.OldestSegment; seg != nil {
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"In the 24+ band the segment with the highest mean age is %s (%s days across %s units). Target: reduce it by 25-30%% within 3 weeks and simplify its SKU mix. Reason: slow SKUs in this segment respond to deep discounts and bundles; channel-level placement raises visibility.",
			seg.Name, g.Round(seg.MeanAge), g.Int(seg.Count)))
	}

	if b := m.Leaders12to24.Brands; len(b) > 0 {
		second := 0
		if len(b) > 1 {
			second = b[1].Count
		}
		f.Fallbacks = append(f.Fallbacks, fmt.Sprintf(
			"%s leads the 12-24mo band with %s units, %s more than the next brand. Target: reduce it by %d%% within 2-3 weeks and bring the band median age under 365 days. Reason: the middle-aged band holds high volume; staged discounts with bundles and strong placement allow fast liquidation.",
			b[0].Key, g.Int(b[0].Count), g.Int(b[0].Count-second), clamp(b[0].Count*8, 20, 40)))
	}

	f.Fallbacks = append(f.Fallbacks,
		fmt.Sprintf("Channel strategy for aged stock: clearance and outlet-led sales for the %s units older than two years. Target: clear 30%% of total 24+ stock within 3 weeks. Reason: price elasticity is high for old stock; outlet visibility with free shipping or extra instalments lifts conversion and lowers carrying cost.", g.Int(m.Total24Plus)),
		"Weekly aging review: every band is tracked against last week's count. Target: no band grows for two weeks in a row. Reason: early signals keep 9-12mo stock from rolling into the 12-24mo band where discounts must be deeper.",
		"Price ladder for aged stock: discounts step up as items cross each band boundary. Target: a published ladder for every brand within 2 weeks. Reason: predictable markdowns clear stock earlier and protect margin on younger items.",
		"Trade-in and bundle program: aged items are paired with fast sellers. Target: 15% of 12-24mo stock moved through bundles within 4 weeks. Reason: bundles lift perceived value without a visible price cut.",
		fmt.Sprintf("Stock transfer between channels: slow locations hand aged items to the channels that sell them. Target: rebalance %s units of 12-24mo stock within 3 weeks. Reason: the same item often sells faster elsewhere, which shortens holding time without extra discount.", g.Int(m.Total12to24)),
	)

	for _, t := range m.YoungerBandTops {
		f.Extras = append(f.Extras, fmt.Sprintf(
			"In the %s band the product waiting most is %s (%s units; %s%% of the band, median age %s days). Target: reduce it by %d%% within 2-3 weeks and lower the band median age. Reason: it is the largest load among the %s units of this band; price tiers with strong placement and bundles speed up conversion.",
			t.Bucket, t.Label(), g.Int(t.Count), g.Fixed(t.Share, 1), g.Int(int(t.MedianAge)), clamp(t.Count*8, 15, 40), g.Int(t.Total)))
	}
	if t := m.TopSegment; t != nil {
		f.Extras = append(f.Extras, fmt.Sprintf(
			"Across all bands the segment holding the most stock is %s (%s units; %s%% of the total, median age %s days). Target: a segment-level reduction of %d%% within 3-4 weeks. Reason: this segment builds up in the overall pool; deeper discounts and campaign visibility improve turnover and lower carrying cost.",
			t.Label(), g.Int(t.Count), g.Fixed(t.Share, 1), g.Int(int(t.MedianAge)), clamp(t.Count*5, 20, 40)))
	}
	if t := m.TopProduct; t != nil {
		f.Extras = append(f.Extras, fmt.Sprintf(
			"Across all bands the product holding the most stock is %s (%s units; %s%% of the total, median age %s days). Target: reduce it by %d%% within 3-4 weeks and pull it into younger bands. Reason: this model is the largest single load in the pool; aggressive pricing with channel shifts and a trade-in program allow fast liquidation.",
			t.Label(), g.Int(t.Count), g.Fixed(t.Share, 1), g.Int(int(t.MedianAge)), clamp(t.Count*6, 20, 45)))
	}
	return f
}

func clamp(v, lo, hi int) int {
	return min(hi, max(lo, v))
}
