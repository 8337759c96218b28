package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"companyinfo/cmd/internal/domain/ingest"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/bytes"
	"github.com/labstack/gommon/log"
)

const (
	EnvProduction = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultUploadLimit = 30_000_000
)

// Config is everything the API and the CLI need to run.
// Values come from the environment (see LoadEnv).
type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error off"`
	HTTPAddr string `yaml:"http_addr" validate:"required"`

	DBDriver    string `yaml:"db_driver" validate:"oneof=sqlite postgres"`
	DBPath      string `yaml:"db_path" validate:"required_if=DBDriver sqlite"`
	DatabaseURL string `yaml:"-" validate:"required_if=DBDriver postgres"`
	DBMaxConns  int32  `yaml:"db_max_conns" validate:"min=0,max=1000"`

	BatchSize     int    `yaml:"batch_size" validate:"min=1,max=10000"`
	CINCase       string `yaml:"cin_case" validate:"keycase"`
	DefaultPolicy string `yaml:"default_policy" validate:"required,safepolicy"`
	MaxUploadSize string `yaml:"max_upload_size" validate:"required,bytesize"`

	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`

	UploadHistoryTTL time.Duration `yaml:"upload_history_ttl" validate:"min=0"`
	MachineID        int64         `yaml:"machine_id" validate:"min=0,max=1023"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// FromEnv reads the configuration from the process environment and
// applies the defaults. It does not validate.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:           os.Getenv("GO_ENV"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		DBDriver:      os.Getenv("DB_DRIVER"),
		DBPath:        os.Getenv("DB_PATH"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CINCase:       os.Getenv("CIN_CASE"),
		DefaultPolicy: os.Getenv("DEFAULT_POLICY"),
		MaxUploadSize: os.Getenv("MAX_UPLOAD_SIZE"),
		S3Bucket:      os.Getenv("S3_BUCKET_NAME"),
		S3Region:      os.Getenv("AWS_S3_REGION"),
	}

	var err error
	if cfg.BatchSize, err = intEnv("BATCH_SIZE"); err != nil {
		return nil, err
	}

	maxConns, err := intEnv("DB_MAX_CONNS")
	if err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(min(maxConns, 1000))

	machineID, err := intEnv("MACHINE_ID")
	if err != nil {
		return nil, err
	}
	cfg.MachineID = int64(machineID)

	if v := os.Getenv("UPLOAD_HISTORY_TTL"); v != "" {
		if cfg.UploadHistoryTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid UPLOAD_HISTORY_TTL %q: %w", v, err)
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func intEnv(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: expected an integer", key, v)
	}
	return n, nil
}

func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.HTTPAddr == "" {
		c.HTTPAddr = ":7070"
	}
	if c.DBDriver == "" {
		c.DBDriver = DriverSQLite
	}
	c.DBDriver = strings.ToLower(c.DBDriver)

	if c.DBPath == "" {
		c.DBPath = "database.db"
	}
	if c.BatchSize == 0 {
		c.BatchSize = ingest.DefaultBatchSize
	}
	if c.CINCase == "" {
		c.CINCase = string(ingest.KeyCaseUpper)
	}
	if c.DefaultPolicy == "" {
		c.DefaultPolicy = string(ingest.DefaultPolicy)
	}
	if p, err := ingest.ParsePolicy(c.DefaultPolicy); err == nil {
		c.DefaultPolicy = string(p)
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "30M"
	}
}

// Validate checks the config with the project validator (see validators.New).
func (c *Config) Validate(validate *validator.Validate) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

func (c *Config) Policy() ingest.Policy {
	p, err := ingest.ParsePolicy(c.DefaultPolicy)
	if err != nil {
		return ingest.DefaultPolicy
	}
	return p
}

func (c *Config) KeyCase() ingest.KeyCase {
	k, err := ingest.ParseKeyCase(c.CINCase)
	if err != nil {
		return ingest.KeyCaseUpper
	}
	return k
}

// UploadLimit is MaxUploadSize in bytes. Units are decimal like echo's
// BodyLimit: "30M" is 30,000,000 bytes, "30MiB" is 30 * 1024 * 1024.
func (c *Config) UploadLimit() int64 {
	n, err := bytes.Parse(c.MaxUploadSize)
	if err != nil || n <= 0 {
		return defaultUploadLimit
	}
	return n
}

// Level maps LogLevel to the gommon logger level.
func (c *Config) Level() log.Lvl {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
