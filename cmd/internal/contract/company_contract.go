package contract

type CompanyResponse struct {
	CIN   string `json:"cin"`
	Name  string `json:"name"`
	State string `json:"state"`
	Email string `json:"email"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type SearchRequest struct {
	Name string `query:"name" validate:"required,max=255"`
}

type ExportRequest struct {
	Format string `query:"format" validate:"omitempty,oneof=csv json sql xlsx"`
}

// ExportFile is a rendered export, ready to be sent as a download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}
