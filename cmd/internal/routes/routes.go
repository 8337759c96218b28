package routes

import (
	"companyinfo/cmd/internal/http/handler"

	"github.com/labstack/echo/v4"
)

// Register mounts every API route on e.
func Register(e *echo.Echo, companies *handler.DefaultCompanyRoute, uploads *handler.DefaultUploadRoute, util *handler.DefaultUtilRoute) {
	api := e.Group("/api")

	// Companies
	api.GET("/companies", companies.GetCompanies)
	api.GET("/companies/search", companies.Search)
	api.GET("/companies/count", companies.Count)
	api.GET("/companies/export", companies.Export)
	api.GET("/companies/:cin", companies.GetCompany)
	api.POST("/companies/uploads", companies.Upload)

	// Uploads
	api.GET("/uploads", uploads.GetHistory)

	// Docker Compose healthcheck
	e.GET("/health", util.HealthCheck)
}
