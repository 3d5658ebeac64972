// Package sqlstore provides a database-agnostic SQL storage driver built on
// ent's SQL builder. Dialect-specific drivers (sqlite, postgres) open the
// connection and embed the Driver.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/storage"
)

// Driver implements storage.Driver over an ent SQL driver.
type Driver struct {
	drv *entsql.Driver
}

var _ storage.Driver = (*Driver)(nil)

// New wraps db for the given ent dialect and runs the schema migration.
func New(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	switch dialectName {
	case dialect.SQLite, dialect.Postgres:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialectName)
	}

	drv := entsql.OpenDB(dialectName, db)

	// Append-only migration: new tables, columns and indexes.
	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{drv: drv}, nil
}

// DB returns the underlying database handle.
func (d *Driver) DB() *sql.DB {
	return d.drv.DB()
}

// Put upserts a prediction keyed by its ID.
func (d *Driver) Put(ctx context.Context, p *churn.Prediction) error {
	if p == nil {
		return storage.ErrNilPrediction
	}

	c := p.Customer
	query, args := d.builder().
		Insert(TableName).
		Columns(Columns...).
		Values(
			p.ID,
			p.SessionID,
			c.Gender,
			c.SeniorCitizen,
			c.Partner,
			c.Dependents,
			c.Tenure,
			c.Contract,
			c.PaymentMethod,
			c.PaperlessBilling,
			c.MonthlyCharges,
			c.TotalCharges,
			c.PhoneService,
			c.MultipleLines,
			c.InternetService,
			c.OnlineSecurity,
			c.OnlineBackup,
			c.DeviceProtection,
			c.TechSupport,
			c.StreamingTV,
			c.StreamingMovies,
			p.Probability,
			string(p.RiskLevel),
			p.CreatedAt.UTC(),
		).
		OnConflict(
			entsql.ConflictColumns(ColumnID),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := d.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("failed to insert prediction %s: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a prediction by its ID.
func (d *Driver) Get(ctx context.Context, id string) (*churn.Prediction, error) {
	sel := d.builder().
		Select(Columns...).
		From(entsql.Table(TableName)).
		Where(entsql.EQ(ColumnID, id)).
		Limit(1)

	preds, err := d.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}
	return preds[0], nil
}

// List returns the predictions matching q.
func (d *Driver) List(ctx context.Context, q storage.Query) ([]*churn.Prediction, error) {
	q = q.Normalize()

	order := entsql.Desc
	if q.Dir == storage.Asc {
		order = entsql.Asc
	}

	sel := d.builder().
		Select(Columns...).
		From(entsql.Table(TableName)).
		OrderBy(order(string(q.Sort)), order(ColumnID)).
		Limit(q.Limit)

	if p := filterPredicate(q); p != nil {
		sel.Where(p)
	}

	return d.query(ctx, sel)
}

// Delete removes a prediction by its ID.
func (d *Driver) Delete(ctx context.Context, id string) error {
	query, args := d.builder().
		Delete(TableName).
		Where(entsql.EQ(ColumnID, id)).
		Query()

	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("failed to delete prediction %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}
	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.drv.Close()
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

func filterPredicate(q storage.Query) *entsql.Predicate {
	var preds []*entsql.Predicate

	if q.Risk != "" {
		preds = append(preds, entsql.EQ(ColumnPredictedChurnStatus, string(q.Risk)))
	}
	if q.Search != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold(ColumnContract, q.Search),
			entsql.ContainsFold(ColumnInternetService, q.Search),
			entsql.ContainsFold(ColumnGender, q.Search),
		))
	}

	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return entsql.And(preds...)
	}
}

func (d *Driver) query(ctx context.Context, sel *entsql.Selector) ([]*churn.Prediction, error) {
	query, args := sel.Query()

	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var preds []*churn.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return preds, nil
}

func scanPrediction(rows *entsql.Rows) (*churn.Prediction, error) {
	var (
		p      churn.Prediction
		c      = &p.Customer
		status string
	)

	err := rows.Scan(
		&p.ID,
		&p.SessionID,
		&c.Gender,
		&c.SeniorCitizen,
		&c.Partner,
		&c.Dependents,
		&c.Tenure,
		&c.Contract,
		&c.PaymentMethod,
		&c.PaperlessBilling,
		&c.MonthlyCharges,
		&c.TotalCharges,
		&c.PhoneService,
		&c.MultipleLines,
		&c.InternetService,
		&c.OnlineSecurity,
		&c.OnlineBackup,
		&c.DeviceProtection,
		&c.TechSupport,
		&c.StreamingTV,
		&c.StreamingMovies,
		&p.Probability,
		&status,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan prediction: %w", err)
	}

	p.RiskLevel = churn.ParseRiskLevel(status)
	p.PredictedChurn = churn.PredictedChurn(p.Probability)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
