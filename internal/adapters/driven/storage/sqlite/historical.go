package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

const historicalTable = "historical_prices"

// Identity and timestamp columns of the historical table. Every other
// column is a market.
const (
	colCode        = "hsn_code"
	colProductName = "product_name"
	colCreatedAt   = "created_at"
	colUpdatedAt   = "updated_at"
)

var reservedColumns = map[string]bool{
	colCode:        true,
	colProductName: true,
	colCreatedAt:   true,
	colUpdatedAt:   true,
}

// psql builds statements with "?" placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// HistoricalStore implements driven.HistoricalStore over the wide
// historical_prices table.
type HistoricalStore struct {
	store *Store
}

var _ driven.HistoricalStore = (*HistoricalStore)(nil)

// GetRow returns the row for code with every non-null market cell.
func (s *HistoricalStore) GetRow(ctx context.Context, code string) (*domain.HistoricalRow, error) {
	query, args, err := psql.Select("*").From(historicalTable).Where(sq.Eq{colCode: code}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying historical row: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying historical row: %w", err)
		}
		return nil, domain.ErrNotFound
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning historical row: %w", err)
	}

	row := &domain.HistoricalRow{Markets: make(map[string]string)}
	for i, col := range columns {
		switch col {
		case colCode:
			row.Code = cellText(values[i])
		case colProductName:
			row.ProductName = cellText(values[i])
		case colUpdatedAt:
			if t, ok := values[i].(time.Time); ok {
				row.UpdatedAt = t
			}
		case colCreatedAt:
		default:
			if text := cellText(values[i]); strings.TrimSpace(text) != "" {
				row.Markets[col] = text
			}
		}
	}
	return row, nil
}

// UpsertCell writes one market cell, adding the market column on first
// use. An empty cell stores NULL.
func (s *HistoricalStore) UpsertCell(ctx context.Context, code, productName, market, cell string) error {
	column := domain.MarketColumn(market)
	if strings.TrimSpace(code) == "" || column == "" {
		return fmt.Errorf("%w: code and market are required", domain.ErrInvalidInput)
	}
	if reservedColumns[column] {
		return fmt.Errorf("%w: %q is not a valid market name", domain.ErrInvalidInput, market)
	}
	if err := s.ensureMarketColumn(ctx, column); err != nil {
		return err
	}

	value := sql.NullString{String: cell, Valid: strings.TrimSpace(cell) != ""}
	now := time.Now().UTC()
	quoted := quoteIdent(column)

	query, args, err := psql.Insert(historicalTable).
		Columns(colCode, colProductName, quoted, colCreatedAt, colUpdatedAt).
		Values(code, productName, value, now, now).
		Suffix(fmt.Sprintf(`ON CONFLICT(%s) DO UPDATE SET
			%s = excluded.%s,
			%s = CASE WHEN excluded.%s <> '' THEN excluded.%s ELSE %s.%s END,
			%s = excluded.%s`,
			colCode,
			quoted, quoted,
			colProductName, colProductName, colProductName, historicalTable, colProductName,
			colUpdatedAt, colUpdatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert: %w", err)
	}

	if _, err := s.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting %s/%s: %w", code, column, err)
	}
	return nil
}

// ListCodes returns every stored code, sorted.
func (s *HistoricalStore) ListCodes(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select(colCode).From(historicalTable).OrderBy(colCode).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing codes: %w", err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *HistoricalStore) ensureMarketColumn(ctx context.Context, column string) error {
	s.store.schemaMu.Lock()
	defer s.store.schemaMu.Unlock()

	cols, err := s.columns(ctx)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if c == column {
			return nil
		}
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", historicalTable, quoteIdent(column))
	if _, err := s.store.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("adding market column %s: %w", column, err)
	}
	return nil
}

func (s *HistoricalStore) columns(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", historicalTable))
	if err != nil {
		return nil, fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid      int
			name     string
			colType  string
			notNull  int
			defValue sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning table info: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, errors.New("historical table missing")
	}
	return cols, nil
}

// cellText converts a scanned cell to text.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
