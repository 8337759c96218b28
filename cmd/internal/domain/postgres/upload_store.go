package postgres

import (
	"context"

	"companyinfo/cmd/internal/domain/entity"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UploadStore struct {
	pool *pgxpool.Pool
}

func NewUploadStore(pool *pgxpool.Pool) *UploadStore {
	return &UploadStore{pool: pool}
}

func (s *UploadStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, uploadReportsSchema); err != nil {
		return mapPostgresError("create upload_reports table", err)
	}
	return nil
}

func (s *UploadStore) Save(ctx context.Context, r *entity.UploadReport) error {
	query := `
		INSERT INTO upload_reports (
			id, file_name, archive_key, policy, total_rows, header_stripped, blank_rows,
			accepted, rejected, superseded, inserted, updated, skipped, deleted,
			batches_total, batches_committed, not_attempted, status, error, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.FileName, r.ArchiveKey, r.Policy, r.TotalRows, r.HeaderStripped, r.BlankRows,
		r.Accepted, r.Rejected, r.Superseded, r.Inserted, r.Updated, r.Skipped, r.Deleted,
		r.BatchesTotal, r.BatchesCommitted, r.NotAttempted, string(r.Status), r.Error, r.CreatedAt,
	)
	return mapPostgresError("save upload report", err)
}

func (s *UploadStore) FindRecent(ctx context.Context, limit int) ([]*entity.UploadReport, error) {
	query := `
		SELECT id, file_name, archive_key, policy, total_rows, header_stripped, blank_rows,
			accepted, rejected, superseded, inserted, updated, skipped, deleted,
			batches_total, batches_committed, not_attempted, status, error, created_at
		FROM upload_reports
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, mapPostgresError("list upload reports", err)
	}
	defer rows.Close()

	var reports []*entity.UploadReport
	for rows.Next() {
		var r entity.UploadReport
		var status string
		err = rows.Scan(
			&r.ID, &r.FileName, &r.ArchiveKey, &r.Policy, &r.TotalRows, &r.HeaderStripped, &r.BlankRows,
			&r.Accepted, &r.Rejected, &r.Superseded, &r.Inserted, &r.Updated, &r.Skipped, &r.Deleted,
			&r.BatchesTotal, &r.BatchesCommitted, &r.NotAttempted, &status, &r.Error, &r.CreatedAt,
		)
		if err != nil {
			return nil, mapPostgresError("scan upload report", err)
		}
		r.Status = entity.UploadStatus(status)
		reports = append(reports, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, mapPostgresError("list upload reports", err)
	}
	return reports, nil
}

func (s *UploadStore) DeleteOlderThan(ctx context.Context, before int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM upload_reports WHERE created_at < $1`, before)
	if err != nil {
		return 0, mapPostgresError("prune upload reports", err)
	}
	return tag.RowsAffected(), nil
}
