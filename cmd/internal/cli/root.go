package cli

import (
	"context"
	"fmt"
	"os"

	"companyinfo/cmd/internal/app"
	"companyinfo/cmd/internal/config"
	"companyinfo/cmd/internal/utils/uid"
	"companyinfo/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X companyinfo/cmd/internal/cli.Version=...".
var Version = "dev"

const envPrefix = "COMPANYINFO"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "companyinfo",
	Short: "Load, search and export company records",
	Long: `companyinfo loads company spreadsheets (CIN, Name, State, Email) into the
company database, reconciling them with the stored records.

Reconciliation policies:
  UPSERT           insert new CINs, overwrite known ones (default)
  APPEND_NEW_ONLY  insert new CINs, keep known ones untouched
  REPLACE_ALL      delete every stored company first (needs --confirm-replace)

Configuration is read from the environment (.env), then COMPANYINFO_* variables,
then flags.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, ctx cancels a running ingest or export.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "companyinfo %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("db-driver", "", "storage driver (sqlite, postgres)")
	flags.String("db-path", "", "sqlite database file")
	flags.String("database-url", "", "postgres connection string")
	flags.Int("batch-size", 0, "records per transaction (1-10000)")
	flags.String("cin-case", "", "CIN normalization (upper, none)")
	flags.String("log-level", "", "log level (debug, info, warn, error, off)")

	_ = viper.BindPFlag("db_driver", flags.Lookup("db-driver"))
	_ = viper.BindPFlag("db_path", flags.Lookup("db-path"))
	_ = viper.BindPFlag("database_url", flags.Lookup("database-url"))
	_ = viper.BindPFlag("batch_size", flags.Lookup("batch-size"))
	_ = viper.BindPFlag("cin_case", flags.Lookup("cin-case"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads COMPANYINFO_* environment variables
func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	// Logs must never end up in an export written to stdout.
	log.SetOutput(os.Stderr)
}

// loadConfig layers the process environment, COMPANYINFO_* variables and
// flags, in that order, and validates the result.
func loadConfig(ctx context.Context, validate *validator.Validate) (*config.Config, error) {
	if err := config.LoadEnv(ctx); err != nil {
		return nil, err
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	if viper.IsSet("db_driver") {
		cfg.DBDriver = viper.GetString("db_driver")
	}
	if viper.IsSet("db_path") {
		cfg.DBPath = viper.GetString("db_path")
	}
	if viper.IsSet("database_url") {
		cfg.DatabaseURL = viper.GetString("database_url")
	}
	if viper.IsSet("batch_size") {
		cfg.BatchSize = viper.GetInt("batch_size")
	}
	if viper.IsSet("cin_case") {
		cfg.CINCase = viper.GetString("cin_case")
	}
	if viper.IsSet("log_level") {
		cfg.LogLevel = viper.GetString("log_level")
	}
	cfg.ApplyDefaults()

	if err = cfg.Validate(validate); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads the configuration and opens storage. The caller closes the app.
func openApp(ctx context.Context) (*app.App, error) {
	validate := validators.New()
	cfg, err := loadConfig(ctx, validate)
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.Level())

	if err = uid.Init(cfg.MachineID); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, validate)
}
