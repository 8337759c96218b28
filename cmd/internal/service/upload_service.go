package service

import (
	"context"

	"companyinfo/cmd/internal/contract"
	"companyinfo/cmd/internal/domain/entity"
	"companyinfo/cmd/internal/utils"
	"companyinfo/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

const defaultHistoryLimit = 20

type DefaultUploadService struct {
	UploadRepo UploadRepository
	Validate   *validator.Validate
}

func NewUploadService(uploadRepo UploadRepository, validate *validator.Validate) *DefaultUploadService {
	return &DefaultUploadService{
		UploadRepo: uploadRepo,
		Validate:   validate,
	}
}

// GetHistory lists the latest upload reports, newest first.
func (u *DefaultUploadService) GetHistory(ctx context.Context, req *contract.HistoryRequest) ([]*contract.UploadReportResponse, apierror.ErrorResponse) {
	if valerr := u.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}

	reports, err := u.UploadRepo.FindRecent(ctx, limit)
	if err != nil {
		log.Errorf("failed to fetch upload history: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.UploadReportResponse, len(reports))
	for i, r := range reports {
		resp[i] = toUploadReportResponse(r)
	}
	return resp, nil
}

func toUploadReportResponse(r *entity.UploadReport) *contract.UploadReportResponse {
	return &contract.UploadReportResponse{
		ID:               r.ID,
		FileName:         r.FileName,
		ArchiveKey:       r.ArchiveKey,
		Status:           string(r.Status),
		Policy:           r.Policy,
		TotalRows:        r.TotalRows,
		Accepted:         r.Accepted,
		Rejected:         r.Rejected,
		Superseded:       r.Superseded,
		Inserted:         r.Inserted,
		Updated:          r.Updated,
		Skipped:          r.Skipped,
		Deleted:          r.Deleted,
		BatchesCommitted: r.BatchesCommitted,
		NotAttempted:     r.NotAttempted,
		Error:            r.Error,
		CreatedAt:        utils.FormatEpoch(r.CreatedAt),
	}
}
