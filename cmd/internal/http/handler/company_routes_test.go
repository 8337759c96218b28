package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"companyinfo/cmd/internal/domain/ingest"
	"companyinfo/cmd/internal/domain/sqlite"
	"companyinfo/cmd/internal/domain/sqlite/repository"
	"companyinfo/cmd/internal/http/handler"
	apimiddleware "companyinfo/cmd/internal/http/middleware"
	"companyinfo/cmd/internal/routes"
	"companyinfo/cmd/internal/service"
	"companyinfo/cmd/internal/utils/uid"
	"companyinfo/cmd/internal/utils/validators"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := uid.Init(2); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const companiesCSV = "CIN,NAME,STATE,EMAIL\n" +
	"U01000123,Acme Corp,Karnataka,info@acme.example\n" +
	"L02000456,Globex,Kerala,hello@globex.example\n" +
	",Nameless,Goa,\n"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	ctx := t.Context()
	db, err := sqlite.Init(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "companies.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })

	validate := validators.New()
	companyRepo := repository.NewCompanyRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	pipeline := ingest.NewPipeline(companyRepo, validate, ingest.Config{})

	companyService := service.NewCompanyService(pipeline, companyRepo, uploadRepo, nil, validate, ingest.PolicyUpsert, 1024*1024)
	uploadService := service.NewUploadService(uploadRepo, validate)

	e := echo.New()
	e.Use(apimiddleware.NewErrorMiddleware(&apimiddleware.ErrorMiddlewareConfig{MaxUploadSize: 1024 * 1024}))
	e.Use(middleware.BodyLimit("1M"))
	routes.Register(e,
		handler.NewCompanyDefault(companyService),
		handler.NewUploadDefault(uploadService),
		handler.NewUtilRoute(companyRepo),
	)
	return e
}

func uploadRequest(t *testing.T, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/companies/uploads", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCompanyRoutes_Upload(t *testing.T) {
	e := newTestServer(t)

	rec := serve(e, uploadRequest(t, "companies.csv", companiesCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode(t, rec)
	require.Equal(t, "COMPLETED", report["status"])
	require.Equal(t, "UPSERT", report["policy"])
	require.EqualValues(t, 2, report["accepted"])
	require.EqualValues(t, 1, report["rejected"])
	require.EqualValues(t, 2, report["inserted"])
	require.IsType(t, "", report["id"])

	rows := report["rejected_rows"].([]any)
	require.Len(t, rows, 1)
	require.EqualValues(t, 4, rows[0].(map[string]any)["line"])
	require.Equal(t, "EMPTY_CIN", rows[0].(map[string]any)["reason"])

	rec = serve(e, uploadRequest(t, "companies.csv", companiesCSV, map[string]string{"policy": "append-new-only"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report = decode(t, rec)
	require.EqualValues(t, 0, report["inserted"])
	require.EqualValues(t, 2, report["skipped"])
}

func TestCompanyRoutes_UploadErrors(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name    string
		req     *http.Request
		status  int
		message string
	}{
		{
			name:    "missing file",
			req:     uploadRequest(t, "", "", map[string]string{"policy": "UPSERT"}),
			status:  http.StatusBadRequest,
			message: "'file' form field",
		},
		{
			name:    "replace without confirmation",
			req:     uploadRequest(t, "companies.csv", companiesCSV, map[string]string{"policy": "REPLACE_ALL"}),
			status:  http.StatusBadRequest,
			message: "confirm=true",
		},
		{
			name:    "unsupported extension",
			req:     uploadRequest(t, "companies.ods", companiesCSV, nil),
			status:  http.StatusBadRequest,
			message: "'ods'",
		},
		{
			name:    "ambiguous header",
			req:     uploadRequest(t, "companies.csv", "NAME,CIN,STATE,EMAIL\nAcme,U1,Goa,a@b.example\n", nil),
			status:  http.StatusBadRequest,
			message: "invalid spreadsheet",
		},
		{
			name:    "body too large",
			req:     uploadRequest(t, "companies.csv", strings.Repeat("x", 2*1024*1024), nil),
			status:  http.StatusRequestEntityTooLarge,
			message: "exceeds the limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.Contains(t, decode(t, rec)["message"], tt.message)
		})
	}

	rec := serve(e, uploadRequest(t, "companies.csv", companiesCSV, map[string]string{"policy": "merge"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode(t, rec)["errors"], "policy")
}

func TestCompanyRoutes_Queries(t *testing.T) {
	e := newTestServer(t)
	require.Equal(t, http.StatusOK, serve(e, uploadRequest(t, "companies.csv", companiesCSV, nil)).Code)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/search?name=ACME", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode(t, rec)["companies"].([]any)
	require.Len(t, found, 1)
	require.Equal(t, "acme corp", found[0].(map[string]any)["name"])

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/search", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode(t, rec)["errors"], "name")

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["companies"], 2)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/count", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, decode(t, rec)["count"])

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/L02000456", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Kerala", decode(t, rec)["state"])

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/l02000456", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "L02000456", decode(t, rec)["cin"])

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/X404", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/uploads?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["uploads"], 1)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/uploads?limit=many", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompanyRoutes_Export(t *testing.T) {
	e := newTestServer(t)
	require.Equal(t, http.StatusOK, serve(e, uploadRequest(t, "companies.csv", companiesCSV, nil)).Code)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/export?format=json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="companies.json"`, rec.Header().Get(echo.HeaderContentDisposition))

	var exported []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	require.Len(t, exported, 2)
	require.Equal(t, "L02000456", exported[0]["cin"])

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "CIN,Name,State,Email\n"))

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/companies/export?format=pdf", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUtilRoutes_HealthAndUnknownRoute(t *testing.T) {
	e := newTestServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not Found", decode(t, rec)["message"])
}
