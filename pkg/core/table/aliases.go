package table

// Logical field names used across the pipeline.
const (
	FieldProduct        = "product"
	FieldDate           = "date"
	FieldRevenue        = "revenue"
	FieldSegment        = "segment"
	FieldPeriodLabel    = "period_label"
	FieldPeriodYear     = "period_year"
	FieldTargetQuantity = "target_quantity"
	FieldTargetRevenue  = "target_revenue"
	FieldEntryDate      = "entry_date"
	FieldBrand          = "brand"
)

// FieldSpec describes one logical field and the normalized header names
// that may carry it, in priority order.
type FieldSpec struct {
	Name       string
	Candidates []string
	Required   bool
}

// SalesFields resolves the sales event table.
var SalesFields = []FieldSpec{
	{Name: FieldProduct, Candidates: []string{"urun_adi", "urun_ad", "product", "product_name", "item", "sku_adi"}, Required: true},
	{Name: FieldDate, Candidates: []string{"tarih", "date", "sales_date"}, Required: true},
	{Name: FieldRevenue, Candidates: []string{"gelir", "amount", "revenue", "sales_amount"}, Required: true},
	{Name: FieldSegment, Candidates: []string{"segment", "kategori", "category", "urun_grubu"}},
}

// TargetFields resolves the monthly target table. The year column is
// normally "Yıl", which folds to "yil".
var TargetFields = []FieldSpec{
	{Name: FieldPeriodLabel, Candidates: []string{"ay", "month", "period", "donem", "tarih"}, Required: true},
	{Name: FieldPeriodYear, Candidates: []string{"yil", "yl", "year", "yr"}, Required: true},
	{Name: FieldTargetQuantity, Candidates: []string{"hedef_adet", "target_quantity", "target_qty", "sales_target"}, Required: true},
	{Name: FieldTargetRevenue, Candidates: []string{"hedef_gelir", "target_revenue", "amount", "revenue"}, Required: true},
}

// StockFields resolves the stock aging table.
var StockFields = []FieldSpec{
	{Name: FieldEntryDate, Candidates: []string{"stok_giris_tarihi", "giris_tarihi", "stok_tarihi", "stock_entry_date", "entry_date"}, Required: true},
	{Name: FieldBrand, Candidates: []string{"marka", "brand"}, Required: true},
	{Name: FieldSegment, Candidates: []string{"segment", "kategori", "category"}},
	{Name: FieldProduct, Candidates: []string{"urun", "model", "sku", "product", "urun_adi", "product_name"}},
}

// ColumnMap maps logical field names to physical column names.
type ColumnMap map[string]string

// Has reports whether the field was resolved.
func (m ColumnMap) Has(field string) bool {
	_, ok := m[field]
	return ok
}

// Column returns the physical column for field, or "".
func (m ColumnMap) Column(field string) string {
	return m[field]
}

// Resolve matches every spec against the table headers. Required misses
// are collected into a single *MissingColumnError; optional misses are
// simply absent from the map.
func Resolve(t *RawTable, specs []FieldSpec) (ColumnMap, error) {
	cols := make(ColumnMap, len(specs))
	var missing []string
	for _, spec := range specs {
		found := false
		for _, candidate := range spec.Candidates {
			if t.HasColumn(candidate) {
				cols[spec.Name] = candidate
				found = true
				break
			}
		}
		if !found && spec.Required {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return cols, &MissingColumnError{Table: t.Name, Fields: missing}
	}
	return cols, nil
}
