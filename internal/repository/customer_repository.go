package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/repository/models"
)

var ErrTableNotFound = errors.New("table not found")

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetColumns lists the columns of a table with their declared types, in
// declaration order.
func (s *CustomerRepository) GetColumns(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	const query = `
		SELECT name, type
		FROM pragma_table_info(?)
		ORDER BY cid
	`

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query GetColumns: %w", err)
	}
	defer rows.Close()

	var cols []models.ColumnInfo
	for rows.Next() {
		var c models.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DeclType); err != nil {
			return nil, fmt.Errorf("scan GetColumns row: %w", err)
		}
		c.Numeric = isNumericDeclType(c.DeclType)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate GetColumns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	return cols, nil
}

// GetSnapshot reads every row of a table, typing each column by its declared
// type. Rows come back in the table's natural scan order.
func (s *CustomerRepository) GetSnapshot(ctx context.Context, table string) (models.TableSnapshot, error) {
	cols, err := s.GetColumns(ctx, table)
	if err != nil {
		return models.TableSnapshot{}, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), quoteIdent(table))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return models.TableSnapshot{}, fmt.Errorf("query GetSnapshot: %w", err)
	}
	defer rows.Close()

	snap := models.TableSnapshot{
		Columns: cols,
		Text:    make(map[string][]string),
		Numbers: make(map[string][]float64),
	}
	for _, c := range cols {
		if c.Numeric {
			snap.Numbers[c.Name] = []float64{}
		} else {
			snap.Text[c.Name] = []string{}
		}
	}

	cells := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return models.TableSnapshot{}, fmt.Errorf("scan GetSnapshot row: %w", err)
		}
		for i, c := range cols {
			if c.Numeric {
				snap.Numbers[c.Name] = append(snap.Numbers[c.Name], numberCell(cells[i]))
			} else {
				snap.Text[c.Name] = append(snap.Text[c.Name], textCell(cells[i]))
			}
		}
		snap.Rows++
	}
	if err := rows.Err(); err != nil {
		return models.TableSnapshot{}, fmt.Errorf("iterate GetSnapshot: %w", err)
	}
	return snap, nil
}

// LoadTable reads a table into an immutable dataset.Table.
func (s *CustomerRepository) LoadTable(ctx context.Context, table string) (*dataset.Table, error) {
	snap, err := s.GetSnapshot(ctx, table)
	if err != nil {
		return nil, err
	}

	cols := make([]dataset.Column, len(snap.Columns))
	for i, c := range snap.Columns {
		if c.Numeric {
			cols[i] = dataset.NumberColumn(c.Name, snap.Numbers[c.Name]...)
		} else {
			cols[i] = dataset.TextColumn(c.Name, snap.Text[c.Name]...)
		}
	}
	return dataset.NewTable(cols...)
}

// isNumericDeclType applies SQLite column affinity rules. Date and time
// declarations are kept textual even though SQLite gives them NUMERIC
// affinity.
func isNumericDeclType(decl string) bool {
	t := strings.ToUpper(decl)
	switch {
	case strings.Contains(t, "INT"):
		return true
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return false
	case t == "", strings.Contains(t, "BLOB"):
		return false
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return true
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"), strings.Contains(t, "BOOL"):
		return false
	default:
		return true
	}
}

func numberCell(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	case []byte:
		return parseNumber(string(x))
	case string:
		return parseNumber(x)
	default:
		return math.NaN()
	}
}

func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func textCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
