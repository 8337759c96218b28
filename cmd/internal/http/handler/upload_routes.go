package handler

import (
	"context"
	"net/http"

	"companyinfo/cmd/internal/contract"
	"companyinfo/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type UploadService interface {
	GetHistory(ctx context.Context, req *contract.HistoryRequest) ([]*contract.UploadReportResponse, apierror.ErrorResponse)
}

type DefaultUploadRoute struct {
	UploadService UploadService
}

func NewUploadDefault(uploadService UploadService) *DefaultUploadRoute {
	return &DefaultUploadRoute{UploadService: uploadService}
}

func (u *DefaultUploadRoute) GetHistory(c echo.Context) error {
	var req contract.HistoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("limit", "int"))
	}

	uploads, apierr := u.UploadService.GetHistory(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"uploads": uploads}
	return c.JSON(http.StatusOK, &resp)
}
