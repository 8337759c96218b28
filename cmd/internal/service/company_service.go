package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"companyinfo/cmd/internal/contract"
	"companyinfo/cmd/internal/domain/entity"
	"companyinfo/cmd/internal/domain/ingest"
	"companyinfo/cmd/internal/export"
	"companyinfo/cmd/internal/infrastructure/aws/storage"
	"companyinfo/cmd/internal/infrastructure/sheet"
	"companyinfo/cmd/internal/utils"
	"companyinfo/cmd/internal/utils/apierror"
	"companyinfo/cmd/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

const statusDryRun = "DRY_RUN"

type CompanyRepository interface {
	SearchByName(ctx context.Context, name string) ([]*entity.Company, error)
	ReadAll(ctx context.Context) ([]*entity.Company, error)
	FindByCIN(ctx context.Context, cin string) (*entity.Company, error)
	Count(ctx context.Context) (int64, error)
}

type UploadRepository interface {
	Save(ctx context.Context, report *entity.UploadReport) error
	FindRecent(ctx context.Context, limit int) ([]*entity.UploadReport, error)
}

type Pipeline interface {
	Prepare(table *ingest.RawTable) (*ingest.Result, error)
	Ingest(ctx context.Context, table *ingest.RawTable, opts ingest.Options) (*ingest.Result, error)
	NormalizeKey(cin string) string
}

type DefaultCompanyService struct {
	Pipeline      Pipeline
	CompanyRepo   CompanyRepository
	UploadRepo    UploadRepository
	Archive       storage.Archive
	Validate      *validator.Validate
	DefaultPolicy ingest.Policy
	MaxUploadSize int64

	// writer allows a single upload at a time.
	writer sync.Mutex
}

func NewCompanyService(
	pipeline Pipeline,
	companyRepo CompanyRepository,
	uploadRepo UploadRepository,
	archive storage.Archive,
	validate *validator.Validate,
	defaultPolicy ingest.Policy,
	maxUploadSize int64,
) *DefaultCompanyService {
	if archive == nil {
		archive = storage.NopArchive{}
	}
	if !defaultPolicy.Valid() {
		defaultPolicy = ingest.DefaultPolicy
	}

	return &DefaultCompanyService{
		Pipeline:      pipeline,
		CompanyRepo:   companyRepo,
		UploadRepo:    uploadRepo,
		Archive:       archive,
		Validate:      validate,
		DefaultPolicy: defaultPolicy,
		MaxUploadSize: maxUploadSize,
	}
}

// Upload reads the multipart file and ingests it, see IngestFile.
func (s *DefaultCompanyService) Upload(ctx context.Context, req *contract.UploadRequest, fileHeader *multipart.FileHeader) (*contract.UploadResponse, apierror.ErrorResponse) {
	if apierr := s.checkUploadFile(fileHeader.Filename, fileHeader.Size); apierr != nil {
		return nil, apierr
	}

	data, apierr := readUploadFile(fileHeader)
	if apierr != nil {
		return nil, apierr
	}
	return s.IngestFile(ctx, fileHeader.Filename, data, req)
}

// IngestFile parses data as a spreadsheet and merges its rows into the stored
// companies. Every attempt that gets past parsing leaves an upload report.
func (s *DefaultCompanyService) IngestFile(ctx context.Context, fileName string, data []byte, req *contract.UploadRequest) (*contract.UploadResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	if apierr := s.checkUploadFile(fileName, int64(len(data))); apierr != nil {
		return nil, apierr
	}

	policy := s.resolvePolicy(req.Policy)
	if policy.Destructive() && !req.Confirm {
		return nil, apierror.ReplaceNotConfirmedError
	}

	if !s.writer.TryLock() {
		return nil, apierror.UploadInProgressError
	}
	defer s.writer.Unlock()

	table, err := sheet.Read(bytes.NewReader(data), fileName)
	if err != nil {
		return nil, readError(fileName, err)
	}

	archiveKey, err := s.Archive.Store(ctx, data, fileName)
	if err != nil {
		// The archive is a convenience copy, the upload goes on without it.
		log.Warnf("failed to archive upload %s: %v", fileName, err)
	}

	res, err := s.Pipeline.Ingest(ctx, table, ingest.Options{Policy: policy, ConfirmReplace: req.Confirm})
	report := newUploadReport(fileName, archiveKey, policy, res, err)
	report.ID = uid.Generate()

	// The report must be written even if the request was cancelled.
	if serr := s.UploadRepo.Save(context.WithoutCancel(ctx), report); serr != nil {
		log.Errorf("failed to save upload report %d: %v", report.ID, serr)
	}

	if err != nil {
		return nil, ingestError(fileName, report, res, err)
	}

	log.Infof("upload %s: %d accepted, %d rejected, %d superseded (%s)",
		fileName, res.Summary.Accepted, res.Summary.Rejected, res.Summary.Superseded, policy)
	return toUploadResponse(report, res), nil
}

// Preview runs the upload without touching storage.
func (s *DefaultCompanyService) Preview(fileName string, data []byte) (*contract.UploadResponse, apierror.ErrorResponse) {
	if apierr := s.checkUploadFile(fileName, int64(len(data))); apierr != nil {
		return nil, apierr
	}

	table, err := sheet.Read(bytes.NewReader(data), fileName)
	if err != nil {
		return nil, readError(fileName, err)
	}

	res, err := s.Pipeline.Prepare(table)
	if err != nil {
		return nil, ingestError(fileName, nil, nil, err)
	}

	resp := toUploadResponse(newUploadReport(fileName, "", s.DefaultPolicy, res, nil), res)
	resp.Status = statusDryRun
	return resp, nil
}

func (s *DefaultCompanyService) Search(ctx context.Context, req *contract.SearchRequest) ([]*contract.CompanyResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	companies, err := s.CompanyRepo.SearchByName(ctx, req.Name)
	if err != nil {
		log.Errorf("failed to search companies by name %q: %v", req.Name, err)
		return nil, apierror.InternalServerError
	}
	return toCompanyResponses(companies), nil
}

func (s *DefaultCompanyService) GetAll(ctx context.Context) ([]*contract.CompanyResponse, apierror.ErrorResponse) {
	companies, err := s.CompanyRepo.ReadAll(ctx)
	if err != nil {
		log.Errorf("failed to fetch companies: %v", err)
		return nil, apierror.InternalServerError
	}
	return toCompanyResponses(companies), nil
}

func (s *DefaultCompanyService) GetByCIN(ctx context.Context, cin string) (*contract.CompanyResponse, apierror.ErrorResponse) {
	cin = strings.TrimSpace(cin)
	if cin == "" {
		return nil, apierror.NewMissingParamError("cin")
	}
	cin = s.Pipeline.NormalizeKey(cin)

	company, err := s.CompanyRepo.FindByCIN(ctx, cin)
	if err != nil {
		log.Errorf("failed to fetch company %s: %v", cin, err)
		return nil, apierror.InternalServerError
	}

	if company == nil {
		return nil, apierror.NotFoundError
	}
	return toCompanyResponse(company), nil
}

func (s *DefaultCompanyService) Count(ctx context.Context) (*contract.CountResponse, apierror.ErrorResponse) {
	n, err := s.CompanyRepo.Count(ctx)
	if err != nil {
		log.Errorf("failed to count companies: %v", err)
		return nil, apierror.InternalServerError
	}
	return &contract.CountResponse{Count: n}, nil
}

func (s *DefaultCompanyService) Export(ctx context.Context, req *contract.ExportRequest) (*contract.ExportFile, apierror.ErrorResponse) {
	utils.Sanitize(req)
	req.Format = strings.ToLower(req.Format)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	format := export.FormatCSV
	if req.Format != "" {
		f, err := export.ParseFormat(req.Format)
		if err != nil {
			return nil, apierror.NewSimple(http.StatusBadRequest, "Unknown export format '%s'", req.Format)
		}
		format = f
	}

	companies, err := s.CompanyRepo.ReadAll(ctx)
	if err != nil {
		log.Errorf("failed to read companies for export: %v", err)
		return nil, apierror.InternalServerError
	}

	var buf bytes.Buffer
	if err = export.Write(&buf, format, companies); err != nil {
		log.Errorf("failed to export %d companies as %s: %v", len(companies), format, err)
		return nil, apierror.InternalServerError
	}

	return &contract.ExportFile{
		FileName:    export.FileName(format),
		ContentType: export.ContentType(format),
		Data:        buf.Bytes(),
	}, nil
}

func (s *DefaultCompanyService) resolvePolicy(name string) ingest.Policy {
	if name == "" {
		return s.DefaultPolicy
	}

	// Already checked by the "policy" validation tag.
	p, err := ingest.ParsePolicy(name)
	if err != nil {
		return s.DefaultPolicy
	}
	return p
}

func (s *DefaultCompanyService) checkUploadFile(fileName string, size int64) apierror.ErrorResponse {
	if s.MaxUploadSize > 0 && size > s.MaxUploadSize {
		return apierror.NewUploadTooLargeError(s.MaxUploadSize)
	}

	if strings.TrimSpace(fileName) == "" {
		return apierror.MissingFileNameError
	}

	if !sheet.Supported(fileName) {
		ext, _ := utils.CheckFileExt(fileName, nil)
		return apierror.NewInvalidFileExtError(ext)
	}
	return nil
}

func readUploadFile(fileHeader *multipart.FileHeader) ([]byte, apierror.ErrorResponse) {
	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("failed to open file: %v", err)
		return nil, apierror.InternalServerError
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("failed to read file: %v", err)
		return nil, apierror.InternalServerError
	}
	return data, nil
}

func readError(fileName string, err error) apierror.ErrorResponse {
	var schemaErr *ingest.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return apierror.NewSchemaError(schemaErr.Error())
	case errors.Is(err, sheet.ErrUnsupportedFormat):
		ext, _ := utils.CheckFileExt(fileName, nil)
		return apierror.NewInvalidFileExtError(ext)
	}

	log.Errorf("failed to read spreadsheet %s: %v", fileName, err)
	return apierror.InternalServerError
}

func ingestError(fileName string, report *entity.UploadReport, res *ingest.Result, err error) apierror.ErrorResponse {
	var (
		schemaErr *ingest.SchemaError
		connErr   *ingest.ConnectionError
		batchErr  *ingest.BatchCommitError
	)

	switch {
	case errors.As(err, &schemaErr):
		return apierror.NewSchemaError(schemaErr.Error())
	case errors.Is(err, ingest.ErrReplaceNotConfirmed):
		return apierror.ReplaceNotConfirmedError
	case errors.Is(err, ingest.ErrUnknownPolicy):
		return apierror.NewSimple(400, "%s", err.Error())
	case errors.As(err, &connErr):
		log.Errorf("upload %s: %v", fileName, err)
		return apierror.StorageUnavailableError
	case errors.As(err, &batchErr):
		log.Errorf("upload %s: %v", fileName, err)
		return apierror.NewDetailed(500, batchErr.Error(), toUploadResponse(report, res))
	}

	log.Errorf("upload %s failed: %v", fileName, err)
	return apierror.InternalServerError
}

// newUploadReport builds the audit record of an upload. res may be nil when
// the upload failed before anything was prepared.
func newUploadReport(fileName, archiveKey string, policy ingest.Policy, res *ingest.Result, err error) *entity.UploadReport {
	report := &entity.UploadReport{
		FileName:   fileName,
		ArchiveKey: archiveKey,
		Policy:     string(policy),
		Status:     entity.UploadCompleted,
		CreatedAt:  utils.NowUTC(),
	}

	if res != nil {
		sum := res.Summary
		report.TotalRows = sum.TotalRows
		report.HeaderStripped = sum.HeaderStripped
		report.BlankRows = sum.BlankRows
		report.Accepted = sum.Accepted
		report.Rejected = sum.Rejected
		report.Superseded = sum.Superseded
		report.Inserted = sum.Inserted
		report.Updated = sum.Updated
		report.Skipped = sum.Skipped
		report.Deleted = sum.Deleted
		report.BatchesTotal = sum.BatchesTotal
		report.BatchesCommitted = sum.BatchesCommitted
		report.NotAttempted = sum.NotAttempted
	}

	if err != nil {
		report.Error = err.Error()
		report.Status = entity.UploadFailed
		if report.BatchesCommitted > 0 {
			report.Status = entity.UploadPartial
		}
	}
	return report
}

func toUploadResponse(report *entity.UploadReport, res *ingest.Result) *contract.UploadResponse {
	resp := &contract.UploadResponse{
		ID:               report.ID,
		FileName:         report.FileName,
		ArchiveKey:       report.ArchiveKey,
		Status:           string(report.Status),
		Policy:           report.Policy,
		TotalRows:        report.TotalRows,
		HeaderStripped:   report.HeaderStripped,
		BlankRows:        report.BlankRows,
		Accepted:         report.Accepted,
		Rejected:         report.Rejected,
		Superseded:       report.Superseded,
		Inserted:         report.Inserted,
		Updated:          report.Updated,
		Skipped:          report.Skipped,
		Deleted:          report.Deleted,
		BatchesTotal:     report.BatchesTotal,
		BatchesCommitted: report.BatchesCommitted,
		NotAttempted:     report.NotAttempted,
		RejectedRows:     []*contract.RejectedRowResponse{},
		SupersededLines:  []int{},
		Error:            report.Error,
		CreatedAt:        utils.FormatEpoch(report.CreatedAt),
	}

	if res == nil {
		return resp
	}

	for _, r := range res.Rejected {
		resp.RejectedRows = append(resp.RejectedRows, &contract.RejectedRowResponse{
			Line:   r.Line,
			CIN:    r.CIN,
			Reason: string(r.Reason),
			Detail: r.Detail,
		})
	}
	resp.SupersededLines = append(resp.SupersededLines, res.Superseded...)
	return resp
}

func toCompanyResponses(companies []*entity.Company) []*contract.CompanyResponse {
	resp := make([]*contract.CompanyResponse, len(companies))
	for i, c := range companies {
		resp[i] = toCompanyResponse(c)
	}
	return resp
}

func toCompanyResponse(c *entity.Company) *contract.CompanyResponse {
	return &contract.CompanyResponse{
		CIN:   c.CIN,
		Name:  c.Name,
		State: c.State,
		Email: c.Email,
	}
}
