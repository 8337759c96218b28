package cli

import (
	"fmt"

	"companyinfo/cmd/internal/contract"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Find companies whose name contains the text (case-insensitive)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		companies, apierr := a.CompanyService.Search(cmd.Context(), &contract.SearchRequest{Name: args[0]})
		if apierr != nil {
			return toError(apierr)
		}
		printCompanies(cmd.OutOrStdout(), companies)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored company, ordered by CIN",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		companies, apierr := a.CompanyService.GetAll(cmd.Context())
		if apierr != nil {
			return toError(apierr)
		}
		printCompanies(cmd.OutOrStdout(), companies)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored companies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		count, apierr := a.CompanyService.Count(cmd.Context())
		if apierr != nil {
			return toError(apierr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), count.Count)
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the latest uploads, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		uploads, apierr := a.UploadService.GetHistory(cmd.Context(), &contract.HistoryRequest{Limit: historyLimit})
		if apierr != nil {
			return toError(apierr)
		}
		printHistory(cmd.OutOrStdout(), uploads)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of uploads to show (1-500)")

	rootCmd.AddCommand(searchCmd, listCmd, countCmd, historyCmd)
}
