package repository

import (
	"context"

	"companyinfo/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultUploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *DefaultUploadRepository {
	return &DefaultUploadRepository{db: db}
}

func (r *DefaultUploadRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&entity.UploadReport{})
}

func (r *DefaultUploadRepository) Save(ctx context.Context, report *entity.UploadReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// FindRecent returns the latest reports, newest first.
func (r *DefaultUploadRepository) FindRecent(ctx context.Context, limit int) ([]*entity.UploadReport, error) {
	var reports []*entity.UploadReport
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *DefaultUploadRepository) DeleteOlderThan(ctx context.Context, before int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&entity.UploadReport{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
