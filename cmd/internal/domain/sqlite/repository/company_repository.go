package repository

import (
	"context"
	"errors"
	"strings"

	"companyinfo/cmd/internal/domain/entity"
	"companyinfo/cmd/internal/domain/ingest"

	gosqlite "github.com/glebarez/go-sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// SQLite caps bound parameters per statement, keep IN lists and
	// multi-row inserts well below it.
	chunkSize = 500

	sqliteConstraint = 19

	bulkSavePoint = "bulk"
	rowSavePoint  = "row"
)

type DefaultCompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *DefaultCompanyRepository {
	return &DefaultCompanyRepository{db: db}
}

func (r *DefaultCompanyRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&entity.Company{})
}

func (r *DefaultCompanyRepository) UpsertBatch(ctx context.Context, records []*entity.Company) (*ingest.BatchResult, error) {
	return r.writeBatch(ctx, records, true)
}

func (r *DefaultCompanyRepository) InsertNewBatch(ctx context.Context, records []*entity.Company) (*ingest.BatchResult, error) {
	return r.writeBatch(ctx, records, false)
}

// writeBatch applies the records in one transaction. The whole batch is
// written with multi-row INSERT ... ON CONFLICT statements; if one row breaks
// a constraint the batch is replayed row by row so only that row is lost.
func (r *DefaultCompanyRepository) writeBatch(ctx context.Context, records []*entity.Company, overwrite bool) (*ingest.BatchResult, error) {
	var res *ingest.BatchResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res = &ingest.BatchResult{}

		existing, err := existingKeys(tx, records)
		if err != nil {
			return err
		}

		if err = tx.SavePoint(bulkSavePoint).Error; err != nil {
			return err
		}

		err = tx.Clauses(onConflict(overwrite)).CreateInBatches(records, chunkSize).Error
		if err == nil {
			for _, rec := range records {
				tally(res, existing[rec.CIN], overwrite)
			}
			return nil
		}

		if !isRowError(err) {
			return err
		}

		if err = tx.RollbackTo(bulkSavePoint).Error; err != nil {
			return err
		}
		return writeRows(tx, records, existing, overwrite, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func writeRows(tx *gorm.DB, records []*entity.Company, existing map[string]bool, overwrite bool, res *ingest.BatchResult) error {
	for _, rec := range records {
		if err := tx.SavePoint(rowSavePoint).Error; err != nil {
			return err
		}

		rowErr := tx.Clauses(onConflict(overwrite)).Create(rec).Error
		if rowErr == nil {
			tally(res, existing[rec.CIN], overwrite)
			continue
		}

		if !isRowError(rowErr) {
			return rowErr
		}

		if err := tx.RollbackTo(rowSavePoint).Error; err != nil {
			return err
		}
		res.Rejected = append(res.Rejected, &ingest.RowFailure{CIN: rec.CIN, Err: rowErr})
	}
	return nil
}

func onConflict(overwrite bool) clause.OnConflict {
	if overwrite {
		return clause.OnConflict{
			Columns:   []clause.Column{{Name: "cin"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "state", "email"}),
		}
	}
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "cin"}},
		DoNothing: true,
	}
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

func existingKeys(tx *gorm.DB, records []*entity.Company) (map[string]bool, error) {
	existing := make(map[string]bool, len(records))

	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))

		cins := make([]string, 0, end-start)
		for _, rec := range records[start:end] {
			cins = append(cins, rec.CIN)
		}

		var found []string
		err := tx.Model(&entity.Company{}).
			Where("cin IN ?", cins).
			Pluck("cin", &found).Error
		if err != nil {
			return nil, err
		}

		for _, cin := range found {
			existing[cin] = true
		}
	}
	return existing, nil
}

// isRowError reports whether err was caused by the row being written rather
// than by the database itself.
func isRowError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}

	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqliteConstraint
	}
	return false
}

func (r *DefaultCompanyRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entity.Company{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *DefaultCompanyRepository) SearchByName(ctx context.Context, name string) ([]*entity.Company, error) {
	pattern := "%" + EscapeLike(strings.ToLower(strings.TrimSpace(name))) + "%"

	var companies []*entity.Company
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).
		Order("cin").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *DefaultCompanyRepository) ReadAll(ctx context.Context) ([]*entity.Company, error) {
	var companies []*entity.Company
	err := r.db.WithContext(ctx).Order("cin").Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *DefaultCompanyRepository) FindByCIN(ctx context.Context, cin string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).
		Where("cin = ?", cin).
		First(&company).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *DefaultCompanyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Company{}).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DefaultCompanyRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// EscapeLike escapes the LIKE wildcards so s matches literally,
// using '\' as the escape character.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
