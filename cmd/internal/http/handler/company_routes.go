package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"companyinfo/cmd/internal/contract"
	"companyinfo/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type CompanyService interface {
	Upload(ctx context.Context, req *contract.UploadRequest, fileHeader *multipart.FileHeader) (*contract.UploadResponse, apierror.ErrorResponse)
	Search(ctx context.Context, req *contract.SearchRequest) ([]*contract.CompanyResponse, apierror.ErrorResponse)
	GetAll(ctx context.Context) ([]*contract.CompanyResponse, apierror.ErrorResponse)
	GetByCIN(ctx context.Context, cin string) (*contract.CompanyResponse, apierror.ErrorResponse)
	Count(ctx context.Context) (*contract.CountResponse, apierror.ErrorResponse)
	Export(ctx context.Context, req *contract.ExportRequest) (*contract.ExportFile, apierror.ErrorResponse)
}

type DefaultCompanyRoute struct {
	CompanyService CompanyService
}

func NewCompanyDefault(companyService CompanyService) *DefaultCompanyRoute {
	return &DefaultCompanyRoute{CompanyService: companyService}
}

func (r *DefaultCompanyRoute) Upload(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return c.JSON(http.StatusBadRequest, apierror.MissingUploadFileError)
	}

	var req contract.UploadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MissingUploadFileError)
	}

	report, apierr := r.CompanyService.Upload(c.Request().Context(), &req, fileHeader)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, report)
}

func (r *DefaultCompanyRoute) GetCompanies(c echo.Context) error {
	companies, apierr := r.CompanyService.GetAll(c.Request().Context())
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"companies": companies}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCompanyRoute) Search(c echo.Context) error {
	var req contract.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("name", "string"))
	}

	companies, apierr := r.CompanyService.Search(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"companies": companies}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCompanyRoute) Count(c echo.Context) error {
	count, apierr := r.CompanyService.Count(c.Request().Context())
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, count)
}

func (r *DefaultCompanyRoute) GetCompany(c echo.Context) error {
	cin := strings.TrimSpace(c.Param("cin"))
	if cin == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("cin"))
	}

	company, apierr := r.CompanyService.GetByCIN(c.Request().Context(), cin)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, company)
}

func (r *DefaultCompanyRoute) Export(c echo.Context) error {
	var req contract.ExportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("format", "string"))
	}

	file, apierr := r.CompanyService.Export(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.FileName+`"`)
	return c.Blob(http.StatusOK, file.ContentType, file.Data)
}
