package contract

type UploadRequest struct {
	Policy  string `form:"policy" validate:"omitempty,policy"`
	Confirm bool   `form:"confirm"`
}

type HistoryRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

type RejectedRowResponse struct {
	Line   int    `json:"line"`
	CIN    string `json:"cin"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

type UploadResponse struct {
	ID             int64  `json:"id,string"`
	FileName       string `json:"file_name"`
	ArchiveKey     string `json:"archive_key,omitempty"`
	Status         string `json:"status"`
	Policy         string `json:"policy"`
	TotalRows      int    `json:"total_rows"`
	HeaderStripped bool   `json:"header_stripped"`
	BlankRows      int    `json:"blank_rows"`
	Accepted       int    `json:"accepted"`
	Rejected       int    `json:"rejected"`
	Superseded     int    `json:"superseded"`
	Inserted       int    `json:"inserted"`
	Updated        int    `json:"updated"`
	Skipped        int    `json:"skipped"`
	Deleted        int64  `json:"deleted"`

	BatchesTotal     int `json:"batches_total"`
	BatchesCommitted int `json:"batches_committed"`
	NotAttempted     int `json:"not_attempted"`

	RejectedRows    []*RejectedRowResponse `json:"rejected_rows"`
	SupersededLines []int                  `json:"superseded_lines"`
	Error           string                 `json:"error,omitempty"`
	CreatedAt       string                 `json:"created_at"`
}

// UploadReportResponse is an entry of the upload history. Row level
// details are only part of the upload response itself.
type UploadReportResponse struct {
	ID               int64  `json:"id,string"`
	FileName         string `json:"file_name"`
	ArchiveKey       string `json:"archive_key,omitempty"`
	Status           string `json:"status"`
	Policy           string `json:"policy"`
	TotalRows        int    `json:"total_rows"`
	Accepted         int    `json:"accepted"`
	Rejected         int    `json:"rejected"`
	Superseded       int    `json:"superseded"`
	Inserted         int    `json:"inserted"`
	Updated          int    `json:"updated"`
	Skipped          int    `json:"skipped"`
	Deleted          int64  `json:"deleted"`
	BatchesCommitted int    `json:"batches_committed"`
	NotAttempted     int    `json:"not_attempted"`
	Error            string `json:"error,omitempty"`
	CreatedAt        string `json:"created_at"`
}
