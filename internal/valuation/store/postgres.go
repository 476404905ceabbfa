package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/sentinel"
	txcontext "ecovalue/pkg/platform/tx"
)

// PostgresStore persists the registry in PostgreSQL. Methods join the
// transaction bound to ctx by RunInTx, if any.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB, txTimeout time.Duration) *PostgresStore {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	return &PostgresStore{db: db, timeout: txTimeout}
}

// RunInTx runs fn inside one SQL transaction, committing only if fn succeeds.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return timeoutOr(ctx, fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return timeoutOr(ctx, err)
	}
	if err := tx.Commit(); err != nil {
		return timeoutOr(ctx, fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// timeoutOr reports err as ERR-TIMEOUT when the transaction deadline passed.
func timeoutOr(ctx context.Context, err error) error {
	if ctx.Err() == nil || dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
}

func (s *PostgresStore) exec(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

// NextID bumps the named counter. The row lock is held until the enclosing
// transaction ends, and a rollback returns the id to the counter.
func (s *PostgresStore) NextID(ctx context.Context, seq models.Sequence) (int64, error) {
	var next int64
	err := s.exec(ctx).QueryRowContext(ctx, `
		UPDATE registry_sequences SET last_value = last_value + 1
		WHERE name = $1
		RETURNING last_value
	`, string(seq)).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sequence %s: %w", seq, sentinel.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("next id %s: %w", seq, err)
	}
	return next, nil
}

func (s *PostgresStore) SaveService(ctx context.Context, svc *models.Service) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO ecosystem_services (
			id, name, type, location, area_km2, annual_value, carbon_sequestration,
			water_purification, biodiversity_index, soil_protection, registered_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		int64(svc.ID), svc.Name, svc.Type, svc.Location, svc.AreaKm2, svc.AnnualValue,
		svc.CarbonSequestration, svc.WaterPurification, svc.BiodiversityIndex,
		svc.SoilProtection, svc.RegisteredBy, svc.CreatedAt,
	)
	return mapWriteErr(err, "save service")
}

const serviceColumns = `id, name, type, location, area_km2, annual_value, carbon_sequestration,
	water_purification, biodiversity_index, soil_protection, registered_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*models.Service, error) {
	var (
		svc models.Service
		id  int64
	)
	err := row.Scan(&id, &svc.Name, &svc.Type, &svc.Location, &svc.AreaKm2, &svc.AnnualValue,
		&svc.CarbonSequestration, &svc.WaterPurification, &svc.BiodiversityIndex,
		&svc.SoilProtection, &svc.RegisteredBy, &svc.CreatedAt)
	if err != nil {
		return nil, err
	}
	svc.ID = models.ServiceID(id)
	return &svc, nil
}

func (s *PostgresStore) FindService(ctx context.Context, id models.ServiceID) (*models.Service, error) {
	row := s.exec(ctx).QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM ecosystem_services WHERE id = $1`, int64(id))
	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	return svc, nil
}

func (s *PostgresStore) ListServices(ctx context.Context) ([]*models.Service, error) {
	rows, err := s.exec(ctx).QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM ecosystem_services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []*models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SavePaymentProgram(ctx context.Context, p *models.PaymentProgram) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO payment_programs (
			id, service_id, payment_type, annual_payment, duration_years,
			performance_metrics, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		int64(p.ID), int64(p.ServiceID), p.PaymentType, p.AnnualPayment, p.DurationYears,
		pq.Array(p.PerformanceMetrics), p.CreatedBy, p.CreatedAt,
	)
	return mapWriteErr(err, "save payment program")
}

const paymentColumns = `id, service_id, payment_type, annual_payment, duration_years,
	performance_metrics, created_by, created_at`

func scanPayment(row rowScanner) (*models.PaymentProgram, error) {
	var (
		p             models.PaymentProgram
		id, serviceID int64
	)
	err := row.Scan(&id, &serviceID, &p.PaymentType, &p.AnnualPayment, &p.DurationYears,
		pq.Array(&p.PerformanceMetrics), &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = models.PaymentID(id)
	p.ServiceID = models.ServiceID(serviceID)
	if p.PerformanceMetrics == nil {
		p.PerformanceMetrics = []int64{}
	}
	return &p, nil
}

func (s *PostgresStore) FindPaymentProgram(ctx context.Context, id models.PaymentID) (*models.PaymentProgram, error) {
	row := s.exec(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_programs WHERE id = $1`, int64(id))
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment program: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPaymentPrograms(ctx context.Context, serviceID models.ServiceID) ([]*models.PaymentProgram, error) {
	rows, err := s.exec(ctx).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_programs WHERE service_id = $1 ORDER BY id`, int64(serviceID))
	if err != nil {
		return nil, fmt.Errorf("list payment programs: %w", err)
	}
	defer rows.Close()

	out := []*models.PaymentProgram{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment program: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment programs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AppendMeasurement(ctx context.Context, m *models.Measurement) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO measurements (
			service_id, carbon_captured, water_filtered, species_count,
			soil_quality_score, recorded_by, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		int64(m.ServiceID), m.CarbonCaptured, m.WaterFiltered, m.SpeciesCount,
		m.SoilQualityScore, m.RecordedBy, m.RecordedAt,
	)
	return mapWriteErr(err, "append measurement")
}

func (s *PostgresStore) ListMeasurements(ctx context.Context, serviceID models.ServiceID) ([]*models.Measurement, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT service_id, carbon_captured, water_filtered, species_count,
			   soil_quality_score, recorded_by, recorded_at
		FROM measurements
		WHERE service_id = $1
		ORDER BY seq
	`, int64(serviceID))
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	out := []*models.Measurement{}
	for rows.Next() {
		var (
			m   models.Measurement
			sid int64
		)
		if err := rows.Scan(&sid, &m.CarbonCaptured, &m.WaterFiltered, &m.SpeciesCount,
			&m.SoilQualityScore, &m.RecordedBy, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		m.ServiceID = models.ServiceID(sid)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveIssuance(ctx context.Context, c *models.CreditIssuance) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO credit_issuances (
			id, service_id, credits_generated, price_per_credit,
			verification_standard, issued_by, issued_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		int64(c.ID), int64(c.ServiceID), c.CreditsGenerated, c.PricePerCredit,
		c.VerificationStandard, c.IssuedBy, c.IssuedAt,
	)
	return mapWriteErr(err, "save issuance")
}

func (s *PostgresStore) ListIssuances(ctx context.Context, serviceID models.ServiceID) ([]*models.CreditIssuance, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT id, service_id, credits_generated, price_per_credit,
			   verification_standard, issued_by, issued_at
		FROM credit_issuances
		WHERE service_id = $1
		ORDER BY id
	`, int64(serviceID))
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	defer rows.Close()

	out := []*models.CreditIssuance{}
	for rows.Next() {
		var (
			c       models.CreditIssuance
			id, sid int64
		)
		if err := rows.Scan(&id, &sid, &c.CreditsGenerated, &c.PricePerCredit,
			&c.VerificationStandard, &c.IssuedBy, &c.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan issuance: %w", err)
		}
		c.ID = models.IssuanceID(id)
		c.ServiceID = models.ServiceID(sid)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issuances: %w", err)
	}
	return out, nil
}

// Totals reads all aggregates in one statement, so they share a snapshot.
func (s *PostgresStore) Totals(ctx context.Context) (*models.Totals, error) {
	var t models.Totals
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT
			(SELECT COALESCE(SUM(annual_value), 0) FROM ecosystem_services),
			(SELECT COUNT(*) FROM ecosystem_services),
			(SELECT COUNT(*) FROM payment_programs)
	`).Scan(&t.TotalValueTracked, &t.TotalServices, &t.TotalPayments)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	return &t, nil
}

// mapWriteErr turns constraint violations into sentinel facts.
func mapWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
