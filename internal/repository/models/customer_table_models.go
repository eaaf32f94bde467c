package models

// ColumnInfo describes one column of a stored customer table as declared in
// the database schema.
type ColumnInfo struct {
	Name     string
	DeclType string
	Numeric  bool
}

// TableSnapshot is the full content of a customer table read in one query.
// Text cells that were NULL are empty strings; numeric NULLs are NaN.
type TableSnapshot struct {
	Columns []ColumnInfo
	Text    map[string][]string
	Numbers map[string][]float64
	Rows    int
}
