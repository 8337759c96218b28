package cli

import (
	"fmt"
	"os"

	"companyinfo/cmd/internal/contract"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every stored company as CSV, JSON, SQL or XLSX",
	Long: `Export writes all stored companies, ordered by CIN.

Example:
  companyinfo export --format json
  companyinfo export --format sql --out companies.sql
  companyinfo export --format xlsx --out companies.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv, json, sql, xlsx)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	file, apierr := a.CompanyService.Export(cmd.Context(), &contract.ExportRequest{Format: exportFormat})
	if apierr != nil {
		return toError(apierr)
	}

	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(file.Data)
		return err
	}

	if err = os.WriteFile(exportOut, file.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOut, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", exportOut)
	return nil
}
