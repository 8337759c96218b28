package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"companyinfo/cmd/internal/contract"
)

func printCompanies(w io.Writer, companies []*contract.CompanyResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CIN\tNAME\tSTATE\tEMAIL")
	for _, c := range companies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.CIN, c.Name, c.State, c.Email)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d companies\n", len(companies))
}

func printUpload(w io.Writer, r *contract.UploadResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", r.FileName)
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Policy:\t%s\n", r.Policy)
	fmt.Fprintf(tw, "Rows:\t%d (header stripped: %t, blank: %d)\n", r.TotalRows, r.HeaderStripped, r.BlankRows)
	fmt.Fprintf(tw, "Accepted:\t%d\n", r.Accepted)
	fmt.Fprintf(tw, "Rejected:\t%d\n", r.Rejected)
	fmt.Fprintf(tw, "Superseded:\t%d\n", r.Superseded)
	fmt.Fprintf(tw, "Inserted / updated / skipped:\t%d / %d / %d\n", r.Inserted, r.Updated, r.Skipped)
	if r.Deleted > 0 {
		fmt.Fprintf(tw, "Deleted before insert:\t%d\n", r.Deleted)
	}
	fmt.Fprintf(tw, "Batches:\t%d of %d committed\n", r.BatchesCommitted, r.BatchesTotal)
	if r.NotAttempted > 0 {
		fmt.Fprintf(tw, "Not saved:\t%d\n", r.NotAttempted)
	}
	if r.ArchiveKey != "" {
		fmt.Fprintf(tw, "Archived as:\t%s\n", r.ArchiveKey)
	}
	_ = tw.Flush()

	if len(r.RejectedRows) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tCIN\tREASON\tDETAIL")
	for _, row := range r.RejectedRows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Line, row.CIN, row.Reason, row.Detail)
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, uploads []*contract.UploadReportResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tFILE\tPOLICY\tSTATUS\tACCEPTED\tREJECTED")
	for _, u := range uploads {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			u.ID, u.CreatedAt, u.FileName, u.Policy, u.Status, u.Accepted, u.Rejected)
	}
	_ = tw.Flush()
}
