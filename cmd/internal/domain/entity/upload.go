package entity

type UploadStatus string

const (
	UploadCompleted UploadStatus = "COMPLETED"
	UploadPartial   UploadStatus = "PARTIAL"
	UploadFailed    UploadStatus = "FAILED"
)

// UploadReport is the audit trail of one spreadsheet upload.
// It never references company rows, so pruning it is always safe.
type UploadReport struct {
	ID             int64  `gorm:"primaryKey;autoIncrement:false"`
	FileName       string `gorm:"not null"`
	ArchiveKey     string `gorm:"not null;default:''"`
	Policy         string `gorm:"not null"`
	TotalRows      int    `gorm:"not null"`
	HeaderStripped bool   `gorm:"not null"`
	BlankRows      int    `gorm:"not null"`
	Accepted       int    `gorm:"not null"`
	Rejected       int    `gorm:"not null"`
	Superseded     int    `gorm:"not null"`
	Inserted       int    `gorm:"not null"`
	Updated        int    `gorm:"not null"`
	Skipped        int    `gorm:"not null"`
	Deleted        int64  `gorm:"not null"`

	BatchesTotal     int `gorm:"not null"`
	BatchesCommitted int `gorm:"not null"`
	NotAttempted     int `gorm:"not null"`

	Status    UploadStatus `gorm:"not null"`
	Error     string       `gorm:"not null;default:''"`
	CreatedAt int64        `gorm:"not null;index;autoCreateTime:false"`
}
