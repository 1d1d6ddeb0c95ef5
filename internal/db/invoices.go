package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/facturaIA/hoadon-extractor/internal/models"
)

// Invoice is a stored extraction.
type Invoice struct {
	ID          uuid.UUID                `json:"id"`
	Team        string                   `json:"team"`
	CreatedBy   *uuid.UUID               `json:"createdBy,omitempty"`
	ObjectKey   string                   `json:"-"`
	Source      string                   `json:"source"`
	Record      *models.InvoiceRecord    `json:"record"`
	Items       []models.LineItem        `json:"items"`
	Issues      []models.ValidationIssue `json:"issues"`
	Valid       bool                     `json:"valid"`
	NeedsReview bool                     `json:"needsReview"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   *time.Time               `json:"updatedAt,omitempty"`

	// DocumentURL is a presigned link, filled in by the API.
	DocumentURL string `json:"documentUrl,omitempty"`
}

// amountColumn returns the resolved value of a, or nil for SQL NULL.
func amountColumn(a models.Amount) *int64 {
	v, ok := a.Value()
	if !ok {
		return nil
	}
	n := int64(v)
	return &n
}

// columns are the values written for an invoice, shared by insert and update.
func (inv *Invoice) columns() ([]any, error) {
	record, err := json.Marshal(inv.Record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	items := inv.Items
	if items == nil {
		items = []models.LineItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	issues := inv.Issues
	if issues == nil {
		issues = []models.ValidationIssue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return nil, fmt.Errorf("failed to encode issues: %w", err)
	}

	r := inv.Record
	return []any{
		r.Employee, r.Date, r.Number, r.Seller, r.TaxCode, r.Category,
		amountColumn(r.PreTax), amountColumn(r.TaxTotal), amountColumn(r.Total),
		string(record), string(itemsJSON), string(issuesJSON),
		inv.Valid, inv.NeedsReview, inv.Source,
	}, nil
}

// SaveExtraction inserts a processed document.
func SaveExtraction(ctx context.Context, inv *Invoice) error {
	if Pool == nil {
		return ErrNoDatabase
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	cols, err := inv.columns()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO invoices (
			employee, invoice_date, number, seller, tax_code, category,
			pre_tax, tax_total, total,
			record, items, issues,
			valid, needs_review, source,
			id, team, created_by, file_name, object_key
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10::jsonb, $11::jsonb, $12::jsonb,
			$13, $14, $15, $16, $17, $18, $19, $20
		)
		RETURNING created_at
	`
	args := append(cols, inv.ID, inv.Team, inv.CreatedBy, inv.Record.FileName, inv.ObjectKey)
	return Pool.QueryRow(ctx, query, args...).Scan(&inv.CreatedAt)
}

// UpdateExtraction rewrites the record of an invoice after an edit or a
// reprocess.
func UpdateExtraction(ctx context.Context, inv *Invoice) error {
	if Pool == nil {
		return ErrNoDatabase
	}
	cols, err := inv.columns()
	if err != nil {
		return err
	}

	query := `
		UPDATE invoices SET
			employee = $1, invoice_date = $2, number = $3, seller = $4, tax_code = $5, category = $6,
			pre_tax = $7, tax_total = $8, total = $9,
			record = $10::jsonb, items = $11::jsonb, issues = $12::jsonb,
			valid = $13, needs_review = $14, source = $15,
			updated_at = now()
		WHERE id = $16 AND team = $17
		RETURNING updated_at
	`
	args := append(cols, inv.ID, inv.Team)
	err = Pool.QueryRow(ctx, query, args...).Scan(&inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const selectInvoice = `
	SELECT id, team, created_by, object_key, source,
	       record::text, items::text, issues::text,
	       valid, needs_review, created_at, updated_at
	FROM invoices
`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var record, items, issues string
	err := row.Scan(
		&inv.ID, &inv.Team, &inv.CreatedBy, &inv.ObjectKey, &inv.Source,
		&record, &items, &issues,
		&inv.Valid, &inv.NeedsReview, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(record), &inv.Record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	if err := json.Unmarshal([]byte(issues), &inv.Issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return &inv, nil
}

// GetInvoice returns one invoice of a team.
func GetInvoice(ctx context.Context, team, id string) (*Invoice, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}
	inv, err := scanInvoice(Pool.QueryRow(ctx, selectInvoice+` WHERE id = $1::uuid AND team = $2`, id, team))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

// ListInvoices returns a page of a team's invoices, newest first, and the
// team's total count.
func ListInvoices(ctx context.Context, team string, limit, offset int) ([]Invoice, int, error) {
	if Pool == nil {
		return nil, 0, ErrNoDatabase
	}

	var total int
	if err := Pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE team = $1`, team).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := Pool.Query(ctx, selectInvoice+` WHERE team = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		team, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}

// DeleteInvoice removes an invoice and returns its stored object key.
func DeleteInvoice(ctx context.Context, team, id string) (string, error) {
	if Pool == nil {
		return "", ErrNoDatabase
	}
	var objectKey string
	err := Pool.QueryRow(ctx, `DELETE FROM invoices WHERE id = $1::uuid AND team = $2 RETURNING object_key`,
		id, team).Scan(&objectKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return objectKey, err
}

// CategoryStats are the current month's totals for one category.
type CategoryStats struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	PreTax   int64  `json:"preTax"`
	TaxTotal int64  `json:"taxTotal"`
	Total    int64  `json:"total"`
}

// MonthlyStats holds the current month's totals of a team.
type MonthlyStats struct {
	Month       string          `json:"month"`
	Count       int             `json:"count"`
	NeedsReview int             `json:"needsReview"`
	Total       int64           `json:"total"`
	Categories  []CategoryStats `json:"categories"`
}

// GetMonthlyStats returns the current month's totals by category.
func GetMonthlyStats(ctx context.Context, team string) (*MonthlyStats, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT category,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE needs_review),
		       COALESCE(SUM(pre_tax), 0),
		       COALESCE(SUM(tax_total), 0),
		       COALESCE(SUM(total), 0)
		FROM invoices
		WHERE team = $1
		AND DATE_TRUNC('month', created_at) = DATE_TRUNC('month', CURRENT_DATE)
		GROUP BY category
		ORDER BY COUNT(*) DESC, category
	`
	rows, err := Pool.Query(ctx, query, team)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &MonthlyStats{
		Month:      time.Now().Format("2006-01"),
		Categories: []CategoryStats{},
	}
	for rows.Next() {
		var c CategoryStats
		var review int
		if err := rows.Scan(&c.Category, &c.Count, &review, &c.PreTax, &c.TaxTotal, &c.Total); err != nil {
			return nil, err
		}
		stats.Count += c.Count
		stats.NeedsReview += review
		stats.Total += c.Total
		stats.Categories = append(stats.Categories, c)
	}
	return stats, rows.Err()
}

// UserStats counts the documents a user submitted.
type UserStats struct {
	Processed   int `json:"processed"`
	NeedsReview int `json:"needsReview"`
}

// GetUserStats returns the counts for a user's submissions.
func GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}
	var s UserStats
	err := Pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE needs_review)
		FROM invoices WHERE created_by = $1
	`, userID).Scan(&s.Processed, &s.NeedsReview)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
