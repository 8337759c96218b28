package entity

// Column limits of the companies table.
const (
	MaxCINLength   = 50
	MaxNameLength  = 255
	MaxStateLength = 100
	MaxEmailLength = 255
)

// Company is a single company record, keyed by its CIN
// (Corporate Identification Number).
//
// Name is always stored lower-cased so searches can be case-insensitive,
// State and Email are kept as trimmed free text.
type Company struct {
	CIN   string `gorm:"primaryKey;column:cin;size:50;check:chk_companies_cin,cin <> ''"`
	Name  string `gorm:"column:name;size:255;not null"`
	State string `gorm:"column:state;size:100;not null"`
	Email string `gorm:"column:email;size:255;not null"`
}
