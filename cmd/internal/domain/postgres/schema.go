package postgres

// The statements only create what is missing, running them on every start
// never touches stored rows.
const companiesSchema = `
CREATE TABLE IF NOT EXISTS companies (
	cin   VARCHAR(50)  PRIMARY KEY,
	name  VARCHAR(255) NOT NULL,
	state VARCHAR(100) NOT NULL,
	email VARCHAR(255) NOT NULL,
	CONSTRAINT chk_companies_cin CHECK (cin <> '')
);
CREATE INDEX IF NOT EXISTS idx_companies_name ON companies (LOWER(name));
`

const uploadReportsSchema = `
CREATE TABLE IF NOT EXISTS upload_reports (
	id                BIGINT  PRIMARY KEY,
	file_name         TEXT    NOT NULL,
	archive_key       TEXT    NOT NULL DEFAULT '',
	policy            TEXT    NOT NULL,
	total_rows        INTEGER NOT NULL,
	header_stripped   BOOLEAN NOT NULL,
	blank_rows        INTEGER NOT NULL,
	accepted          INTEGER NOT NULL,
	rejected          INTEGER NOT NULL,
	superseded        INTEGER NOT NULL,
	inserted          INTEGER NOT NULL,
	updated           INTEGER NOT NULL,
	skipped           INTEGER NOT NULL,
	deleted           BIGINT  NOT NULL,
	batches_total     INTEGER NOT NULL,
	batches_committed INTEGER NOT NULL,
	not_attempted     INTEGER NOT NULL,
	status            TEXT    NOT NULL,
	error             TEXT    NOT NULL DEFAULT '',
	created_at        BIGINT  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_upload_reports_created_at ON upload_reports (created_at);
`
