package ingest

import (
	"context"

	"companyinfo/cmd/internal/domain/entity"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

const (
	DefaultBatchSize = 1000
	MaxBatchSize     = 10000
)

// Gateway is the write side of the company storage. Every call is one
// transaction: either the whole batch is applied or nothing is.
type Gateway interface {
	UpsertBatch(ctx context.Context, records []*entity.Company) (*BatchResult, error)
	InsertNewBatch(ctx context.Context, records []*entity.Company) (*BatchResult, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// BatchResult is what a committed batch did. Rejected rows were isolated
// and skipped, the rest of the batch was committed.
type BatchResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Rejected []*RowFailure
}

type RowFailure struct {
	CIN string
	Err error
}

func (f *RowFailure) detail() string {
	if f.Err == nil {
		return "rejected by storage"
	}
	return f.Err.Error()
}

type Options struct {
	Policy Policy

	// ConfirmReplace must be set for PolicyReplaceAll.
	ConfirmReplace bool
}

type Summary struct {
	Policy         Policy
	TotalRows      int
	HeaderStripped bool
	BlankRows      int
	Accepted       int
	Rejected       int
	Superseded     int

	Inserted int
	Updated  int
	Skipped  int
	Deleted  int64

	BatchesTotal     int
	BatchesCommitted int
	NotAttempted     int
}

// Result of an upload. Accepted holds the records that reached storage
// (or would, for Prepare), Superseded holds the line numbers of rows
// replaced by a later row with the same CIN.
type Result struct {
	Accepted   []*entity.Company
	Rejected   []*RowValidationError
	Superseded []int
	Summary    Summary

	lines map[string]int
}

type Config struct {
	BatchSize int
	KeyCase   KeyCase
}

type Pipeline struct {
	gateway   Gateway
	validate  *validator.Validate
	batchSize int
	keyCase   KeyCase
}

func NewPipeline(gateway Gateway, validate *validator.Validate, cfg Config) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchSize = min(batchSize, MaxBatchSize)

	keyCase := cfg.KeyCase
	if keyCase == "" {
		keyCase = KeyCaseUpper
	}

	return &Pipeline{
		gateway:   gateway,
		validate:  validate,
		batchSize: batchSize,
		keyCase:   keyCase,
	}
}

// Ingest prepares the table and merges the accepted records into storage
// according to opts.Policy, one transaction per batch.
//
// On a *BatchCommitError the returned Result is still populated with what
// was committed before the failure.
func (p *Pipeline) Ingest(ctx context.Context, table *RawTable, opts Options) (*Result, error) {
	if !opts.Policy.Valid() {
		_, err := ParsePolicy(string(opts.Policy))
		return nil, err
	}

	if opts.Policy == PolicyReplaceAll && !opts.ConfirmReplace {
		return nil, ErrReplaceNotConfirmed
	}

	res, err := p.Prepare(table)
	if err != nil {
		return nil, err
	}
	res.Summary.Policy = opts.Policy

	write := p.gateway.UpsertBatch
	switch opts.Policy {
	case PolicyReplaceAll:
		if len(res.Accepted) == 0 {
			return nil, &SchemaError{Reason: "no valid rows, refusing to replace the stored companies with nothing"}
		}

		deleted, err := p.gateway.DeleteAll(ctx)
		if err != nil {
			return nil, &ConnectionError{Op: "delete all", Err: err}
		}
		res.Summary.Deleted = deleted
		log.Infof("replace all: deleted %d stored companies", deleted)
		write = p.gateway.InsertNewBatch

	case PolicyAppendNewOnly:
		write = p.gateway.InsertNewBatch
	}

	batches := chunk(res.Accepted, p.batchSize)
	res.Summary.BatchesTotal = len(batches)

	saved := make([]*entity.Company, 0, len(res.Accepted))
	for i, batch := range batches {
		br, err := p.commit(ctx, write, batch)
		if err != nil {
			return p.abort(res, saved, i, err)
		}

		failed := make(map[string]bool, len(br.Rejected))
		for _, rf := range br.Rejected {
			failed[rf.CIN] = true
			res.Rejected = append(res.Rejected, &RowValidationError{
				Line:   res.lines[rf.CIN],
				CIN:    rf.CIN,
				Reason: ReasonStorageConstraint,
				Detail: rf.detail(),
			})
		}

		for _, c := range batch {
			if !failed[c.CIN] {
				saved = append(saved, c)
			}
		}

		res.Summary.Inserted += br.Inserted
		res.Summary.Updated += br.Updated
		res.Summary.Skipped += br.Skipped
		res.Summary.BatchesCommitted++
	}

	res.Accepted = saved
	res.Summary.Accepted = len(saved)
	res.Summary.Rejected = len(res.Rejected)
	return res, nil
}

func (p *Pipeline) commit(
	ctx context.Context,
	write func(context.Context, []*entity.Company) (*BatchResult, error),
	batch []*entity.Company,
) (*BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return write(ctx, batch)
}

func (p *Pipeline) abort(res *Result, saved []*entity.Company, batch int, err error) (*Result, error) {
	notAttempted := 0
	for _, b := range chunk(res.Accepted, p.batchSize)[batch:] {
		notAttempted += len(b)
	}

	res.Accepted = saved
	res.Summary.Accepted = len(saved)
	res.Summary.Rejected = len(res.Rejected)
	res.Summary.NotAttempted = notAttempted

	log.Errorf("upload aborted at batch %d/%d: %v", batch+1, res.Summary.BatchesTotal, err)
	return res, &BatchCommitError{
		Batch:            batch + 1,
		BatchesCommitted: res.Summary.BatchesCommitted,
		RecordsSaved:     len(saved),
		NotAttempted:     notAttempted,
		Err:              err,
	}
}

func chunk(records []*entity.Company, size int) [][]*entity.Company {
	var batches [][]*entity.Company
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}
