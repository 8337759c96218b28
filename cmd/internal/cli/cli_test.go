package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// run executes the command tree with args, after resetting every flag left
// over from a previous run.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := Execute(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)

	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const companiesCSV = "CIN,NAME,STATE,EMAIL\n" +
	"U01000123,Acme Corp,Karnataka,info@acme.example\n" +
	"L02000456,O'Reilly Media,Kerala,hello@oreilly.example\n" +
	",Nameless,Goa,\n"

func TestCLI_IngestAndQuery(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "companies.db")
	file := writeFile(t, dir, "companies.csv", companiesCSV)

	out, err := run(t, "ingest", file, "--db-path", db)
	require.NoError(t, err, out)
	require.Contains(t, out, "COMPLETED")
	require.Contains(t, out, "EMPTY_CIN")

	out, err = run(t, "count", "--db-path", db)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)

	out, err = run(t, "search", "ACME", "--db-path", db)
	require.NoError(t, err)
	require.Contains(t, out, "acme corp")
	require.Contains(t, out, "1 companies")

	out, err = run(t, "list", "--db-path", db)
	require.NoError(t, err)
	require.Contains(t, out, "2 companies")

	out, err = run(t, "history", "--db-path", db)
	require.NoError(t, err)
	require.Contains(t, out, "companies.csv")

	sqlFile := filepath.Join(dir, "companies.sql")
	_, err = run(t, "export", "--format", "sql", "--out", sqlFile, "--db-path", db)
	require.NoError(t, err)

	script, err := os.ReadFile(sqlFile)
	require.NoError(t, err)
	require.Contains(t, string(script), "'o''reilly media'")

	out, err = run(t, "export", "-f", "csv", "--db-path", db)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "CIN,Name,State,Email\n"), out)
}

func TestCLI_IngestPolicies(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "companies.db")
	file := writeFile(t, dir, "companies.csv", companiesCSV)

	_, err := run(t, "ingest", file, "--db-path", db)
	require.NoError(t, err)

	_, err = run(t, "ingest", file, "--db-path", db, "--policy", "replace-all")
	require.ErrorContains(t, err, "confirm")

	out, err := run(t, "ingest", file, "--db-path", db, "--policy", "replace-all", "--confirm-replace")
	require.NoError(t, err, out)
	require.Contains(t, out, "Deleted before insert:")

	_, err = run(t, "ingest", file, "--db-path", db, "--policy", "merge")
	require.ErrorContains(t, err, "policy")

	out, err = run(t, "ingest", file, "--db-path", db, "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "DRY_RUN")

	_, err = run(t, "ingest", filepath.Join(dir, "missing.csv"), "--db-path", db)
	require.ErrorContains(t, err, "failed to read")
}

func TestCLI_ConfigShowAndVersion(t *testing.T) {
	out, err := run(t, "config", "show", "--batch-size", "250", "--cin-case", "none", "--db-path", "/tmp/companies.db")
	require.NoError(t, err)
	require.Contains(t, out, "batch_size: 250")
	require.Contains(t, out, "cin_case: none")
	require.Contains(t, out, "db_path: /tmp/companies.db")
	require.NotContains(t, out, "database_url")

	_, err = run(t, "config", "show", "--batch-size", "20000")
	require.Error(t, err)

	out, err = run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "companyinfo dev\n", out)
}
