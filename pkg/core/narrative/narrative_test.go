package narrative

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func salesMetrics() *calc.SalesMetrics {
	jan := calc.Period{Year: 2024, Month: time.January}
	feb := calc.Period{Year: 2024, Month: time.February}
	return &calc.SalesMetrics{
		Periods: []calc.PeriodMetric{
			{Period: jan, SalesQuantity: 80, SalesRevenue: 40000, TargetQuantity: intp(100), TargetRevenue: floatp(50000), CompletionRate: 80},
			{Period: feb, SalesQuantity: 100, SalesRevenue: 52000},
		},
		Products:      []calc.ProductTotal{{Name: "Alpha", Quantity: 120}, {Name: "Beta", Quantity: 60}},
		Top:           &calc.ProductTotal{Name: "Alpha", Quantity: 120},
		Bottom:        &calc.ProductTotal{Name: "Beta", Quantity: 60},
		TotalQuantity: 180,
		TotalRevenue:  92000,
		TopShare:      66.7,
		Trend: calc.Trend{
			LastQuantity: 100, LastRevenue: 52000,
			PrevQuantity: intp(80), PrevRevenue: floatp(40000),
			MoMDelta: intp(20), MoMPercent: floatp(25),
			MovingAvgQuantity: 100, MovingAvgRevenue: 52000,
			Direction: "rising",
		},
		Window:             calc.CompletionWindow{Period: feb, Closed: true},
		Best:               &calc.PeriodPerformance{Period: jan, Rate: 80, Gap: 20},
		Worst:              &calc.PeriodPerformance{Period: feb, Rate: 0, Gap: -100},
		UnderTargetPeriods: 2,
	}
}

func stockMetrics() *calc.StockMetrics {
	return &calc.StockMetrics{
		Total:        12,
		BucketCounts: map[calc.AgingBucket]int{calc.Bucket24Plus: 5, calc.Bucket12to24: 4, calc.Bucket1to3: 3},
		BrandPivot:   &calc.Pivot{Rows: calc.Buckets, Series: []string{"Acme", "Beta", "Gamma"}},
		Total12to24:  4,
		Total24Plus:  5,
		FocusBand:    calc.Band24Plus,
		TopBand:      calc.Bucket24Plus,
		TopBandCount: 5,
		Leaders12to24: calc.BandLeaders{
			Band:   calc.Band12to24,
			Brands: []calc.Count{{Key: "Beta", Parts: []string{"Beta"}, Count: 3}, {Key: "Gamma", Parts: []string{"Gamma"}, Count: 1}},
		},
		Leaders24Plus: calc.BandLeaders{
			Band:   calc.Band24Plus,
			Brands: []calc.Count{{Key: "Acme", Parts: []string{"Acme"}, Count: 4}, {Key: "Beta", Parts: []string{"Beta"}, Count: 1}},
			Brand:  calc.LeaderSummary{Leaders: []string{"Acme"}, LeaderCount: 4, SecondCount: 1},
		},
		Oldest: &calc.StockItem{Brand: "Acme", Product: "Kettle", AgeDays: 1200, Bucket: calc.Bucket24Plus},
		YoungerBandTops: []calc.GroupShare{
			{Bucket: calc.Bucket1to3, Parts: []string{"Gamma", "Toaster"}, Count: 2, Total: 3, Share: 66.7, MedianAge: 45},
		},
		TopProduct: &calc.GroupShare{Parts: []string{"Acme", "Kettle"}, Count: 4, Total: 12, Share: 33.3, MedianAge: 900},
		HasProduct: true,
	}
}

var numbered = regexp.MustCompile(`^(\d+)\) `)

func assertWellFormed(t *testing.T, rep Report) {
	t.Helper()
	for i, l := range rep.Lines {
		m := numbered.FindStringSubmatch(l)
		require.NotNil(t, m, l)
		assert.Equal(t, fmt.Sprint(i+1), m[1])
		assert.Contains(t, ".!?", l[len(l)-1:], l)
	}
}

func TestValidateSalesFallbackOnly(t *testing.T) {
	facts := SalesFacts(salesMetrics(), "en")
	require.Len(t, facts.Fallbacks, 10)

	for _, raw := range []string{"", "   \n\t", "Sorry, I cannot help."} {
		rep := Validate(raw, facts, SalesConfig())
		assert.Len(t, rep.Lines, 10)
		assert.Equal(t, 0, rep.Kept)
		assert.Equal(t, 10, rep.Fallback)
		assertWellFormed(t, rep)
	}
}

func TestValidateSalesReply(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "%d. Insight %d holds. It is backed by data. Act on it now\n", i, i)
	}
	rep := Validate(b.String(), SalesFacts(salesMetrics(), "en"), SalesConfig())

	require.Len(t, rep.Lines, 10)
	assert.Equal(t, 12, rep.Kept)
	assert.Equal(t, 0, rep.Fallback)
	assert.Equal(t, "1) Insight 1 holds. It is backed by data. Act on it now.", rep.Lines[0])
	assert.Equal(t, "10) Insight 10 holds. It is backed by data. Act on it now.", rep.Lines[9])
}

func TestValidateSalesMixed(t *testing.T) {
	raw := strings.Join([]string{
		"- **Recommendation:** Raise prices on slow items. Test bundles. Track weekly",
		"* Too short. Only two",
		`"Target: Lift February by ten percent. Use the campaign calendar. Review on Friday."`,
		"",
		"# Heading",
	}, "\n")
	rep := Validate(raw, SalesFacts(salesMetrics(), "en"), SalesConfig())

	require.Len(t, rep.Lines, 10)
	assert.Equal(t, 2, rep.Kept)
	assert.Equal(t, 8, rep.Fallback)
	assert.Equal(t, "1) Raise prices on slow items. Test bundles. Track weekly.", rep.Lines[0])
	assert.Equal(t, "2) Lift February by ten percent. Use the campaign calendar. Review on Friday.", rep.Lines[1])
	assert.True(t, strings.HasPrefix(rep.Lines[2], "3) The sales trend"))
	assertWellFormed(t, rep)
}

func TestValidateStructuredReplies(t *testing.T) {
	line := "Alpha leads. Beta trails. Rebalance the mix."
	t.Run("json object", func(t *testing.T) {
		raw := "```json\n{\"items\": [\"" + line + "\", {\"text\": \"One. Two. Three.\"}]}\n```"
		rep := Validate(raw, Facts{}, Config{MinSentences: 3})
		assert.Equal(t, []string{"1) " + line, "2) One. Two. Three."}, rep.Lines)
	})

	t.Run("repaired json", func(t *testing.T) {
		rep := Validate(`['One. Two. Three.', 'Four. Five. Six.',]`, Facts{}, Config{MinSentences: 3})
		assert.Equal(t, []string{"1) One. Two. Three.", "2) Four. Five. Six."}, rep.Lines)
	})

	t.Run("html list", func(t *testing.T) {
		raw := "<ol>\n<li>" + line + "</li>\n<li>One.\n Two. Three.</li></ol>"
		rep := Validate(raw, Facts{}, Config{MinSentences: 3})
		assert.Equal(t, []string{"1) " + line, "2) One. Two. Three."}, rep.Lines)
	})
}

func TestMentionCap(t *testing.T) {
	lines := []string{
		"Alpha and Alpha again.",
		"Alpha returns, with Beta.",
		"Beta. Beta. Beta.",
	}
	got := capMentions(lines, []Entity{{"Alpha", "the product"}, {"Beta", "the other"}}, 2)
	assert.Equal(t, []string{
		"Alpha and Alpha again.",
		"the product returns, with Beta.",
		"Beta. the other. the other.",
	}, got)

	assert.Equal(t, lines, capMentions(lines, nil, 2))
}

func TestMentionCapWholeWords(t *testing.T) {
	lines := []string{
		"Pro sold well. Pro leads. Pro again.",
		"Promotions should target the top seller, not Pro.",
	}
	got := capMentions(lines, []Entity{{"Pro", ProductPlaceholder}}, 2)
	assert.Equal(t, []string{
		"Pro sold well. Pro leads. the related product again.",
		"Promotions should target the top seller, not the related product.",
	}, got)
}

func TestMentionCapInReport(t *testing.T) {
	m := salesMetrics()
	raw := strings.Repeat("Alpha sold well. Alpha is the leader. Alpha should be stocked.\n", 4)
	rep := Validate(raw, SalesFacts(m, "en"), SalesConfig())
	text := rep.Text()
	for _, p := range m.Products {
		assert.LessOrEqual(t, strings.Count(text, p.Name), 2, p.Name)
	}
	assert.Contains(t, text, ProductPlaceholder)
}

func TestGroupNumbers(t *testing.T) {
	en := utils.NewGrouper("en")
	tests := []struct {
		in, want string
	}{
		{"Revenue was 10200200 TL.", "Revenue was 10,200,200 TL."},
		{"We sold 3400 units, then 12500units!", "We sold 3,400 units, then 12,500units!"},
		{"(=45000 TL)", "(=45,000 TL)"},
		{"In 2025 growth hit 12500% and 999 TL.", "In 2025 growth hit 12500% and 999 TL."},
		{"A decimal 1234.56 TL stays.", "A decimal 1234.56 TL stays."},
		{"Stock 1500 adet.", "Stock 1,500 adet."},
		{"TLX 5000 TLX", "TLX 5000 TLX"},
		{"SKU1234 units ship first.", "SKU1234 units ship first."},
		{"code_4500 TL", "code_4500 TL"},
		{"Şube2500 adet", "Şube2500 adet"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := GroupNumbers(tt.in, DefaultUnits, en)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, GroupNumbers(got, DefaultUnits, en), "idempotent")
		})
	}

	tr := utils.NewGrouper("tr")
	got := GroupNumbers("Ciro 10200200 TL oldu.", DefaultUnits, tr)
	assert.Equal(t, "Ciro 10.200.200 TL oldu.", got)
	assert.Equal(t, got, GroupNumbers(got, DefaultUnits, tr))
}

func TestCleanLine(t *testing.T) {
	labels := labelPattern(SalesConfig().Labels)
	tests := []struct {
		in, want string
	}{
		{"3) Note - watch returns.", "watch returns."},
		{"• “Action: call suppliers”", "call suppliers"},
		{"Item 4: rotate stock", "rotate stock"},
		{"Solution: Target: two labels", "two labels"},
		{"*Segment* shares moved", "Segment shares moved"},
		{"Targeted ads work", "Targeted ads work"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanLine(tt.in, labels), tt.in)
	}
}

func TestSentenceHelpers(t *testing.T) {
	assert.Equal(t, "Done.", ensureSentence("Done"))
	assert.Equal(t, "Done?", ensureSentence("Done?"))
	assert.Equal(t, "Çözüldü.", ensureSentence("Çözüldü"))
	assert.Equal(t, 3, sentenceMarks("One. Two! Three?"))
	assert.Equal(t, 3, sentenceMarks("Wait..."))
}

func TestValidateStockFallbackOnly(t *testing.T) {
	m := stockMetrics()
	facts := StockFacts(m, "en")
	require.GreaterOrEqual(t, len(facts.Fallbacks), 6)
	require.Len(t, facts.Extras, 2)

	rep := Validate("", facts, StockConfig())
	assert.Len(t, rep.Lines, 8)
	assert.Equal(t, 6, rep.Fallback)
	assert.Equal(t, 2, rep.Extras)
	assertWellFormed(t, rep)
	assert.Contains(t, rep.Lines[0], "24+ band are Acme (4 units; the next brand holds 1 units)")
	assert.Contains(t, rep.Lines[0], "cut 24+ stock by 40%")
	assert.Contains(t, rep.Lines[6], "In the 1-3mo band the product waiting most is Gamma – Toaster")
	assert.Contains(t, rep.Lines[6], "reduce it by 16%")
	assert.Contains(t, rep.Lines[7], "reduce it by 24%")

	text := rep.Text()
	for _, e := range facts.Entities {
		assert.LessOrEqual(t, strings.Count(text, e.Name), 4, e.Name)
	}
	for _, l := range rep.Lines {
		assert.Contains(t, l, "Target:")
		assert.Contains(t, l, "Reason:")
	}
}

func TestValidateStockReply(t *testing.T) {
	raw := strings.Join([]string{
		"1. Oldest single item: Kettle waits longest. Target: clear it in 3 weeks. Reason: it ties up 1200 units.",
		"2. We should increase assortment now. Target: new lines. Reason: variety.",
		"3. In the 24+ band the most items belong to brand Beta. Target: cut 40%. Reason: slow turnover.",
		"4. Beta is fine. Nothing else. No markers here.",
		"5. Acme holds aged stock. Target: cut 30%. Reason: slow turnover.",
	}, "\n")
	rep := Validate(raw, StockFacts(stockMetrics(), "en"), StockConfig())

	require.GreaterOrEqual(t, len(rep.Lines), 6+2)
	assert.Equal(t, 4, rep.Kept)
	assert.Equal(t, "1) Kettle waits longest. Target: clear it in 3 weeks. Reason: it ties up 1,200 units.", rep.Lines[0])
	assert.Contains(t, rep.Lines[1], "liquidating existing 12-24mo and 24+mo stock")
	assert.NotContains(t, rep.Lines[1], "increase assortment")
	assert.Contains(t, rep.Lines[2], "belong to brand Acme")
	assert.Contains(t, rep.Lines[2], "liquidation takes priority.")
	assert.Equal(t, "4) Acme holds aged stock. Target: cut 30%. Reason: slow turnover; this accumulation also raises carrying cost and value-loss risk, so liquidation takes priority.", rep.Lines[3])
	assert.Equal(t, 2, rep.Fallback)
	assertWellFormed(t, rep)
}

func TestCorrectLeaderWordBoundary(t *testing.T) {
	claim := compileFold(StockConfig().LeaderClaim)
	line := "24+ band: the most items sit with brand Betamax, then Beta."
	got := correctLeader(line, claim, []string{"Acme"}, []string{"Beta", "Betamax"})
	assert.Equal(t, "24+ band: the most items sit with brand Acme, then Beta.", got)

	unchanged := "24+ band: the most items belong to brand Acme."
	assert.Equal(t, unchanged, correctLeader(unchanged, claim, []string{"Acme"}, []string{"Beta"}))
}

func TestValidateDeterministic(t *testing.T) {
	facts := StockFacts(stockMetrics(), "en")
	raw := "Acme holds aged stock. Target: cut 30%. Reason: slow turnover."
	first := Validate(raw, facts, StockConfig())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Validate(raw, facts, StockConfig()))
	}
}
