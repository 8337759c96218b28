package postgres

import (
	"context"
	"errors"
	"strings"

	"companyinfo/cmd/internal/domain/entity"
	"companyinfo/cmd/internal/domain/ingest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/log"
)

const (
	upsertCompanies = `
		INSERT INTO companies (cin, name, state, email)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[])
		ON CONFLICT (cin) DO UPDATE
		SET name = EXCLUDED.name, state = EXCLUDED.state, email = EXCLUDED.email
	`
	insertNewCompanies = `
		INSERT INTO companies (cin, name, state, email)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[])
		ON CONFLICT (cin) DO NOTHING
	`
)

// CompanyStore is the PostgreSQL implementation of the company storage.
type CompanyStore struct {
	pool *pgxpool.Pool
}

func NewCompanyStore(pool *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{pool: pool}
}

func (s *CompanyStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, companiesSchema); err != nil {
		return mapPostgresError("create companies table", err)
	}
	return nil
}

func (s *CompanyStore) UpsertBatch(ctx context.Context, records []*entity.Company) (*ingest.BatchResult, error) {
	return s.writeBatch(ctx, records, upsertCompanies, true)
}

func (s *CompanyStore) InsertNewBatch(ctx context.Context, records []*entity.Company) (*ingest.BatchResult, error) {
	return s.writeBatch(ctx, records, insertNewCompanies, false)
}

// writeBatch runs the whole batch as one statement inside a transaction.
// When a row breaks a constraint, the statement is rolled back to a
// savepoint and the batch is replayed row by row to isolate it.
func (s *CompanyStore) writeBatch(ctx context.Context, records []*entity.Company, query string, overwrite bool) (*ingest.BatchResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, mapPostgresError("begin batch", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	existing, err := existingKeys(ctx, tx, records)
	if err != nil {
		return nil, mapPostgresError("read existing keys", err)
	}

	res := &ingest.BatchResult{}

	err = execSavepoint(ctx, tx, query, columns(records)...)
	switch {
	case err == nil:
		for _, rec := range records {
			tally(res, existing[rec.CIN], overwrite)
		}

	case isRowError(err):
		log.Debugf("batch of %d rows hit a constraint, writing row by row: %v", len(records), err)
		for _, rec := range records {
			err = execSavepoint(ctx, tx, query, columns([]*entity.Company{rec})...)
			if err == nil {
				tally(res, existing[rec.CIN], overwrite)
				continue
			}
			if !isRowError(err) {
				return nil, mapPostgresError("write company", err)
			}
			res.Rejected = append(res.Rejected, &ingest.RowFailure{CIN: rec.CIN, Err: err})
		}

	default:
		return nil, mapPostgresError("write batch", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, mapPostgresError("commit batch", err)
	}
	return res, nil
}

// execSavepoint runs one statement in a nested transaction (a savepoint) so a
// failure can be undone without aborting the outer transaction.
func execSavepoint(ctx context.Context, tx pgx.Tx, query string, args ...any) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}

	if _, err = sp.Exec(ctx, query, args...); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func columns(records []*entity.Company) []any {
	cins := make([]string, len(records))
	names := make([]string, len(records))
	states := make([]string, len(records))
	emails := make([]string, len(records))

	for i, rec := range records {
		cins[i] = rec.CIN
		names[i] = rec.Name
		states[i] = rec.State
		emails[i] = rec.Email
	}
	return []any{cins, names, states, emails}
}

func existingKeys(ctx context.Context, tx pgx.Tx, records []*entity.Company) (map[string]bool, error) {
	cins := make([]string, len(records))
	for i, rec := range records {
		cins[i] = rec.CIN
	}

	rows, err := tx.Query(ctx, `SELECT cin FROM companies WHERE cin = ANY($1)`, cins)
	if err != nil {
		return nil, err
	}

	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(found))
	for _, cin := range found {
		existing[cin] = true
	}
	return existing, nil
}

func tally(res *ingest.BatchResult, existed, overwrite bool) {
	switch {
	case !existed:
		res.Inserted++
	case overwrite:
		res.Updated++
	default:
		res.Skipped++
	}
}

func (s *CompanyStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM companies`)
	if err != nil {
		return 0, mapPostgresError("delete companies", err)
	}
	return tag.RowsAffected(), nil
}

func (s *CompanyStore) SearchByName(ctx context.Context, name string) ([]*entity.Company, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(name))) + "%"

	return s.query(ctx, "search companies", `
		SELECT cin, name, state, email
		FROM companies
		WHERE LOWER(name) LIKE $1 ESCAPE '\'
		ORDER BY cin
	`, pattern)
}

func (s *CompanyStore) ReadAll(ctx context.Context) ([]*entity.Company, error) {
	return s.query(ctx, "list companies", `SELECT cin, name, state, email FROM companies ORDER BY cin`)
}

func (s *CompanyStore) FindByCIN(ctx context.Context, cin string) (*entity.Company, error) {
	var c entity.Company
	err := s.pool.QueryRow(ctx, `SELECT cin, name, state, email FROM companies WHERE cin = $1`, cin).
		Scan(&c.CIN, &c.Name, &c.State, &c.Email)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, mapPostgresError("get company", err)
	}
	return &c, nil
}

func (s *CompanyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count); err != nil {
		return 0, mapPostgresError("count companies", err)
	}
	return count, nil
}

func (s *CompanyStore) query(ctx context.Context, op, query string, args ...any) ([]*entity.Company, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPostgresError(op, err)
	}
	defer rows.Close()

	var companies []*entity.Company
	for rows.Next() {
		var c entity.Company
		if err = rows.Scan(&c.CIN, &c.Name, &c.State, &c.Email); err != nil {
			return nil, mapPostgresError(op, err)
		}
		companies = append(companies, &c)
	}

	if err = rows.Err(); err != nil {
		return nil, mapPostgresError(op, err)
	}
	return companies, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *CompanyStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
