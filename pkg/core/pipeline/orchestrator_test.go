package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_insight/pkg/core/calc"
	"sales_insight/pkg/core/llm"
	"sales_insight/pkg/core/store"
	"sales_insight/pkg/core/table"
)

// --- Mocks ---

type MockGenerator struct {
	GenerateFunc func(ctx context.Context, mode, system, prompt string) llm.Result
	Calls        []string
}

func (m *MockGenerator) Generate(ctx context.Context, mode, system, prompt string) llm.Result {
	m.Calls = append(m.Calls, mode)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, mode, system, prompt)
	}
	return llm.Result{Err: &llm.GenerativeServiceError{Provider: "mock", Err: llm.ErrEmptyResponse}}
}

func failingGenerator() *MockGenerator {
	return &MockGenerator{GenerateFunc: func(ctx context.Context, _, system, prompt string) llm.Result {
		return llm.Call(ctx, "mock", llm.ProviderFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("connection refused")
		}), system, prompt)
	}}
}

type MockRepository struct {
	UpsertFunc func(ctx context.Context, r store.Record) error
	Records    []store.Record
}

func (m *MockRepository) Upsert(ctx context.Context, r store.Record) error {
	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, r); err != nil {
			return err
		}
	}
	m.Records = append(m.Records, r)
	return nil
}

func (m *MockRepository) Get(context.Context, string, string) (*store.Record, error) {
	return nil, store.ErrNotFound
}

func (m *MockRepository) Subjects(context.Context) ([]string, error) {
	return nil, nil
}

// --- Fixtures ---

func salesTable() *table.RawTable {
	return table.NewRawTable("sales", []string{"Ürün Adı", "Tarih", "Gelir", "Segment"}, [][]string{
		{"Phone X", "2024-01-05", "100", "Mobile"},
		{"Phone X", "2024-01-06", "100", "Mobile"},
		{"Tablet", "2024-01-20", "300", "Tablet"},
		{"Phone X", "2024-02-02", "100", "Mobile"},
		{"Tablet", "2024-02-03", "300", "Tablet"},
	})
}

func targetTable() *table.RawTable {
	return table.NewRawTable("targets", []string{"Ay", "Yıl", "Hedef Adet", "Hedef Gelir"}, [][]string{
		{"Ocak", "2024", "4", "1000"},
	})
}

func stockTable() *table.RawTable {
	return table.NewRawTable("stock", []string{"Stok Giriş Tarihi", "Marka", "Ürün", "Kategori"}, [][]string{
		{"2021-01-10", "Acme", "Kettle", "Kitchen"},
		{"2021-03-10", "Acme", "Kettle", "Kitchen"},
		{"2022-11-01", "Beta", "Toaster", "Kitchen"},
		{"2023-09-01", "Gamma", "Lamp", "Home"},
		{"2024-02-01", "Gamma", "Lamp", "Home"},
	})
}

var today = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, gen Generator, repo store.Repository) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(gen, repo, DefaultOptions())
	require.NoError(t, err)
	o.SetClock(func() time.Time { return today })
	return o
}

// --- Tests ---

func TestRunSales_GenerativeFailureFallsBack(t *testing.T) {
	gen := failingGenerator()
	repo := &MockRepository{}
	o := newTestOrchestrator(t, gen, repo)

	res := o.RunSales(context.Background(), SalesRequest{SubjectID: "u1", Sales: salesTable(), Targets: targetTable()})
	require.True(t, res.OK())

	require.Len(t, res.PeriodMetrics, 2)
	assert.InDelta(t, 75.0, res.PeriodMetrics[0].CompletionRate, 1e-9)
	assert.Zero(t, res.PeriodMetrics[1].CompletionRate)
	require.NotNil(t, res.Metrics.Trend.MoMDelta)
	assert.Equal(t, -1, *res.Metrics.Trend.MoMDelta)

	assert.Len(t, res.Report.Lines, 10)
	assert.Equal(t, 10, res.Report.Fallback)
	assert.Equal(t, []string{ModeSales}, gen.Calls)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "connection refused")
	assert.Contains(t, res.Prompt.User, "exactly 10")

	require.Len(t, repo.Records, 2)
	jan := repo.Records[0]
	assert.Equal(t, "u1", jan.SubjectID)
	assert.Equal(t, "2024-01", jan.PeriodKey)
	assert.Equal(t, 3, jan.ActualQuantity)
	assert.InDelta(t, 0.1, jan.DailyAverage, 1e-9)
	assert.Zero(t, jan.RequiredDailyRate)
	assert.Equal(t, res.Report.Text(), jan.NarrativeText)
}

func TestRunSales_UsesReply(t *testing.T) {
	var reply strings.Builder
	for i := 0; i < 10; i++ {
		reply.WriteString("- Tablet revenue held. Phone X slowed. Shift budget to Tablet\n")
	}
	gen := &MockGenerator{GenerateFunc: func(_ context.Context, mode, system, prompt string) llm.Result {
		assert.NotEmpty(t, system)
		return llm.Result{Text: reply.String(), Provider: "mock"}
	}}
	o := newTestOrchestrator(t, gen, nil)

	res := o.RunSales(context.Background(), SalesRequest{Sales: salesTable(), Targets: targetTable()})
	require.True(t, res.OK())
	assert.Equal(t, 10, res.Report.Kept)
	assert.Zero(t, res.Report.Fallback)
	assert.Zero(t, res.Saved)
	assert.Equal(t, "1) Tablet revenue held. Phone X slowed. Shift budget to Tablet.", res.Report.Lines[0])

	text := res.Report.Text()
	assert.LessOrEqual(t, strings.Count(text, "Tablet"), 2)
	assert.LessOrEqual(t, strings.Count(text, "Phone X"), 2)
}

func TestRunSales_IngestionErrorsStopTheRun(t *testing.T) {
	gen := &MockGenerator{GenerateFunc: func(context.Context, string, string, string) llm.Result {
		t.Fatal("generator must not be called")
		return llm.Result{}
	}}
	repo := &MockRepository{}
	o := newTestOrchestrator(t, gen, repo)

	badSales := table.NewRawTable("sales", []string{"Notes"}, [][]string{{"x"}})
	badTargets := table.NewRawTable("targets", []string{"Ay"}, nil)
	res := o.RunSales(context.Background(), SalesRequest{SubjectID: "u1", Sales: badSales, Targets: badTargets})

	assert.False(t, res.OK())
	assert.Empty(t, res.Report.Lines)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "product, date, revenue")
	assert.Contains(t, res.Warnings[1], "period_year")
	assert.Empty(t, repo.Records)

	t.Run("empty window", func(t *testing.T) {
		res := o.RunSales(context.Background(), SalesRequest{
			Sales: salesTable(), Targets: targetTable(),
			Start: calc.Period{Year: 2025, Month: time.January},
		})
		assert.False(t, res.OK())
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "no sales in the selected date range")
	})

	t.Run("unreadable file", func(t *testing.T) {
		res := o.RunSales(context.Background(), SalesRequest{SalesPath: "does-not-exist.csv", Targets: targetTable()})
		assert.False(t, res.OK())
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "does-not-exist.csv")
	})
}

func TestRunSales_PersistenceErrorIsAWarning(t *testing.T) {
	repo := &MockRepository{UpsertFunc: func(_ context.Context, r store.Record) error {
		if r.PeriodKey == "2024-02" {
			return errors.New("disk full")
		}
		return nil
	}}
	o := newTestOrchestrator(t, failingGenerator(), repo)

	res := o.RunSales(context.Background(), SalesRequest{SubjectID: "u1", Sales: salesTable(), Targets: targetTable()})
	require.True(t, res.OK())
	assert.Len(t, res.Report.Lines, 10)
	assert.Equal(t, 1, res.Saved)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "store upsert u1/2024-02: disk full")
}

func TestRunSales_RerunIsIdempotent(t *testing.T) {
	repo := store.NewMemoryRepository()
	o := newTestOrchestrator(t, failingGenerator(), repo)
	req := SalesRequest{SubjectID: "u1", Sales: salesTable(), Targets: targetTable()}

	first := o.RunSales(context.Background(), req)
	second := o.RunSales(context.Background(), req)
	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, first.Report, second.Report)
}

func TestRunSales_WithoutTargets(t *testing.T) {
	o := newTestOrchestrator(t, failingGenerator(), nil)
	res := o.RunSales(context.Background(), SalesRequest{Sales: salesTable()})
	require.True(t, res.OK())
	assert.Contains(t, res.Warnings[0], "no target table")
	for _, pm := range res.PeriodMetrics {
		assert.Zero(t, pm.CompletionRate)
	}
	assert.Len(t, res.Report.Lines, 10)
}

func TestRunStock(t *testing.T) {
	gen := &MockGenerator{GenerateFunc: func(context.Context, string, string, string) llm.Result {
		return llm.Result{Text: "Acme holds the oldest stock. Target: cut 40%. Reason: slow turnover."}
	}}
	o := newTestOrchestrator(t, gen, nil)

	res := o.RunStock(context.Background(), StockRequest{Stock: stockTable()})
	require.True(t, res.OK())
	assert.Equal(t, []string{ModeStock}, gen.Calls)
	assert.Equal(t, 5, res.Metrics.Total)
	assert.Equal(t, 2, res.Metrics.Total24Plus)
	assert.Equal(t, calc.Band24Plus, res.Metrics.FocusBand)

	assert.Equal(t, 1, res.Report.Kept)
	assert.Equal(t, 5, res.Report.Fallback)
	assert.GreaterOrEqual(t, len(res.Report.Lines), 6)
	assert.Contains(t, res.Report.Lines[0], "liquidation takes priority")
	for _, l := range res.Report.Lines {
		assert.Contains(t, ".!?", l[len(l)-1:])
	}
}

func TestRunStock_EmptyTable(t *testing.T) {
	gen := &MockGenerator{}
	o := newTestOrchestrator(t, gen, nil)

	empty := table.NewRawTable("stock", []string{"Stok Giriş Tarihi", "Marka"}, [][]string{{"not a date", "Acme"}})
	res := o.RunStock(context.Background(), StockRequest{Stock: empty})

	assert.False(t, res.OK())
	require.NotNil(t, res.Metrics)
	assert.True(t, res.Metrics.Empty)
	assert.Empty(t, res.Report.Lines)
	assert.Empty(t, gen.Calls)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "no stock rows with a valid entry date")
}

func TestRunStock_MissingColumns(t *testing.T) {
	o := newTestOrchestrator(t, &MockGenerator{}, nil)
	res := o.RunStock(context.Background(), StockRequest{Stock: table.NewRawTable("stock", []string{"Marka"}, nil)})
	assert.False(t, res.OK())
	assert.Nil(t, res.Metrics)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "entry_date")
}
