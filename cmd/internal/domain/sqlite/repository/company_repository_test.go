package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"companyinfo/cmd/internal/domain/entity"
	"companyinfo/cmd/internal/domain/ingest"
	"companyinfo/cmd/internal/domain/sqlite"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := sqlite.Init(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })
	return db
}

func company(cin, name string) *entity.Company {
	return &entity.Company{CIN: cin, Name: name, State: "CA", Email: cin + "@x.com"}
}

func TestCompanyRepository_EnsureSchemaKeepsData(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))

	_, err := repo.UpsertBatch(ctx, []*entity.Company{company("U1", "acme")})
	require.NoError(t, err)

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestCompanyRepository_UpsertBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))

	res, err := repo.UpsertBatch(ctx, []*entity.Company{company("U1", "acme"), company("U2", "beta")})
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
	require.Zero(t, res.Updated)

	res, err = repo.UpsertBatch(ctx, []*entity.Company{company("U1", "acme renamed"), company("U3", "gamma")})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Updated)

	got, err := repo.FindByCIN(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, "acme renamed", got.Name)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestCompanyRepository_InsertNewBatchLeavesExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))

	_, err := repo.InsertNewBatch(ctx, []*entity.Company{company("U1", "acme")})
	require.NoError(t, err)

	res, err := repo.InsertNewBatch(ctx, []*entity.Company{company("U1", "acme renamed"), company("U2", "beta")})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Skipped)

	got, err := repo.FindByCIN(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, "acme", got.Name)
}

func TestCompanyRepository_RowConstraintIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))

	res, err := repo.UpsertBatch(ctx, []*entity.Company{company("U1", "acme"), company("", "no key"), company("U2", "beta")})
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
	require.Len(t, res.Rejected, 1)
	require.Empty(t, res.Rejected[0].CIN)
	require.Error(t, res.Rejected[0].Err)

	all, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestCompanyRepository_LargeBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))

	records := make([]*entity.Company, 0, 2500)
	for i := range 2500 {
		records = append(records, company(fmt.Sprintf("U%05d", i), fmt.Sprintf("company %d", i)))
	}

	res, err := repo.UpsertBatch(ctx, records)
	require.NoError(t, err)
	require.Equal(t, 2500, res.Inserted)

	res, err = repo.UpsertBatch(ctx, records)
	require.NoError(t, err)
	require.Equal(t, 2500, res.Updated)
}

func TestCompanyRepository_CancelledContextWritesNothing(t *testing.T) {
	repo := NewCompanyRepository(openTestDB(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.UpsertBatch(ctx, []*entity.Company{company("U1", "acme")})
	require.Error(t, err)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCompanyRepository_DeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))

	_, err := repo.UpsertBatch(ctx, []*entity.Company{company("U1", "acme"), company("U2", "beta")})
	require.NoError(t, err)

	deleted, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	all, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCompanyRepository_SearchByName(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))

	_, err := repo.UpsertBatch(ctx, []*entity.Company{
		company("U3", "acme renamed"),
		company("U1", "acme"),
		company("U2", "beta"),
		company("U4", "100% pure_oils"),
		company("U5", "100 pure oils"),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "substring, ordered by cin", query: "acme", want: []string{"U1", "U3"}},
		{name: "case insensitive", query: "ACME Ren", want: []string{"U3"}},
		{name: "percent is literal", query: "100%", want: []string{"U4"}},
		{name: "underscore is literal", query: "pure_", want: []string{"U4"}},
		{name: "no match", query: "zeta", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.SearchByName(ctx, tt.query)
			require.NoError(t, err)

			var cins []string
			for _, c := range found {
				cins = append(cins, c.CIN)
			}
			require.Equal(t, tt.want, cins)
		})
	}
}

func TestCompanyRepository_FindByCINMissing(t *testing.T) {
	repo := NewCompanyRepository(openTestDB(t))

	got, err := repo.FindByCIN(context.Background(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `50\% off\_now \\o/`, EscapeLike(`50% off_now \o/`))
}

// TestPipelineAgainstSQLite runs the append vs upsert scenario end to end.
func TestPipelineAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	repo := NewCompanyRepository(openTestDB(t))
	pipeline := ingest.NewPipeline(repo, validator.New(), ingest.Config{BatchSize: 1})

	header := []string{"CIN", "Name", "State", "Email"}
	first := &ingest.RawTable{Header: header, Rows: []ingest.Row{
		{Line: 2, Cells: []string{"U01000123", "Acme", "CA", "a@x.com"}},
		{Line: 3, Cells: []string{"U01000456", "Beta", "NY", "b@x.com"}},
	}}
	second := &ingest.RawTable{Header: header, Rows: []ingest.Row{
		{Line: 2, Cells: []string{"U01000123", "Acme Renamed", "CA", "a@x.com"}},
	}}

	res, err := pipeline.Ingest(ctx, first, ingest.Options{Policy: ingest.PolicyAppendNewOnly})
	require.NoError(t, err)
	require.Equal(t, 2, res.Summary.Inserted)
	require.Equal(t, 2, res.Summary.BatchesCommitted)

	_, err = pipeline.Ingest(ctx, second, ingest.Options{Policy: ingest.PolicyAppendNewOnly})
	require.NoError(t, err)

	got, err := repo.FindByCIN(ctx, "U01000123")
	require.NoError(t, err)
	require.Equal(t, "acme", got.Name)

	_, err = pipeline.Ingest(ctx, second, ingest.Options{Policy: ingest.PolicyUpsert})
	require.NoError(t, err)

	got, err = repo.FindByCIN(ctx, "U01000123")
	require.NoError(t, err)
	require.Equal(t, "acme renamed", got.Name)

	found, err := repo.SearchByName(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "U01000123", found[0].CIN)

	res, err = pipeline.Ingest(ctx, second, ingest.Options{Policy: ingest.PolicyReplaceAll, ConfirmReplace: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Summary.Deleted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestPipelineAgainstSQLite_StorageConstraint(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TRIGGER companies_block_name BEFORE INSERT ON companies
		WHEN NEW.name = 'blocked corp'
		BEGIN SELECT RAISE(ABORT, 'name is blocked'); END`).Error)

	repo := NewCompanyRepository(db)
	pipeline := ingest.NewPipeline(repo, validator.New(), ingest.Config{})

	table := &ingest.RawTable{Header: []string{"CIN", "Name", "State", "Email"}, Rows: []ingest.Row{
		{Line: 2, Cells: []string{"U01000123", "Acme", "CA", "a@x.com"}},
		{Line: 3, Cells: []string{"U01000456", "Blocked Corp", "NY", "b@x.com"}},
		{Line: 4, Cells: []string{"U01000789", "Gamma", "TX", "c@x.com"}},
	}}

	res, err := pipeline.Ingest(ctx, table, ingest.Options{Policy: ingest.PolicyUpsert})
	require.NoError(t, err)
	require.Equal(t, 2, res.Summary.Inserted)
	require.Equal(t, 1, res.Summary.BatchesCommitted)

	require.Len(t, res.Rejected, 1)
	rejected := res.Rejected[0]
	require.Equal(t, 3, rejected.Line)
	require.Equal(t, "U01000456", rejected.CIN)
	require.Equal(t, ingest.ReasonStorageConstraint, rejected.Reason)
	require.Contains(t, rejected.Detail, "name is blocked")

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
