package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"companyinfo/cmd/internal/contract"
	"companyinfo/cmd/internal/utils/apierror"

	"github.com/spf13/cobra"
)

var (
	ingestPolicy   string
	confirmReplace bool
	dryRun         bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Load a spreadsheet (.xlsx or .csv) into the company database",
	Long: `Ingest reads the first sheet of a workbook, or a CSV file, with the columns
CIN, Name, State, Email (by position) and merges the rows into the stored
companies according to the reconciliation policy.

Example:
  companyinfo ingest companies.xlsx
  companyinfo ingest companies.csv --policy append-new-only
  companyinfo ingest companies.xlsx --policy replace-all --confirm-replace
  companyinfo ingest companies.csv --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestPolicy, "policy", "", "reconciliation policy (upsert, append-new-only, replace-all), default from DEFAULT_POLICY")
	ingestCmd.Flags().BoolVar(&confirmReplace, "confirm-replace", false, "allow replace-all to delete every stored company")
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and report without writing anything")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fileName := filepath.Base(path)

	var (
		report *contract.UploadResponse
		apierr apierror.ErrorResponse
	)
	if dryRun {
		report, apierr = a.CompanyService.Preview(fileName, data)
	} else {
		req := &contract.UploadRequest{Policy: ingestPolicy, Confirm: confirmReplace}
		report, apierr = a.CompanyService.IngestFile(cmd.Context(), fileName, data, req)
	}

	if apierr != nil {
		// An aborted upload still reports what was committed.
		if detailed, ok := apierr.(*apierror.DetailedError); ok {
			if partial, ok := detailed.Details.(*contract.UploadResponse); ok {
				printUpload(cmd.OutOrStdout(), partial)
			}
		}
		return toError(apierr)
	}

	printUpload(cmd.OutOrStdout(), report)
	return nil
}
