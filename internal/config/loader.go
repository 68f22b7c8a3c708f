package config

import (
	"fmt"

	"github.com/rpattn/annex-migrate/internal/db"
	"github.com/spf13/viper"
)

// Config carries everything one migration run needs.
type Config struct {
	DB db.Config

	SnapshotDir string
	FixtureDir  string
	ReportDir   string
	DumpPath    string

	BatchSize       int
	Workers         int
	ServiceIdentity string
}

// DefaultConfig returns the built-in defaults, before config file and
// environment overrides.
func DefaultConfig() Config {
	return Config{
		DB:              db.DefaultConfig(),
		SnapshotDir:     "snapshot",
		FixtureDir:      "fixtures",
		ReportDir:       "reports",
		DumpPath:        "annex_storage.dump",
		BatchSize:       1000,
		Workers:         4,
		ServiceIdentity: "annex-migrate",
	}
}

func Load(configPath string) (Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()          // allow environment overrides
	v.SetEnvPrefix("MIGRATE") // map env vars like MIGRATE_DATABASE.HOST

	// Optional: Map nested keys to flat env vars
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("migration.snapshot_dir")
	v.BindEnv("migration.fixture_dir")
	v.BindEnv("migration.report_dir")
	v.BindEnv("migration.dump_path")
	v.BindEnv("migration.batch_size")
	v.BindEnv("migration.workers")
	v.BindEnv("migration.service_identity")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("migration.snapshot_dir") {
		cfg.SnapshotDir = v.GetString("migration.snapshot_dir")
	}
	if v.IsSet("migration.fixture_dir") {
		cfg.FixtureDir = v.GetString("migration.fixture_dir")
	}
	if v.IsSet("migration.report_dir") {
		cfg.ReportDir = v.GetString("migration.report_dir")
	}
	if v.IsSet("migration.dump_path") {
		cfg.DumpPath = v.GetString("migration.dump_path")
	}
	if v.IsSet("migration.batch_size") {
		cfg.BatchSize = v.GetInt("migration.batch_size")
	}
	if v.IsSet("migration.workers") {
		cfg.Workers = v.GetInt("migration.workers")
	}
	if v.IsSet("migration.service_identity") {
		cfg.ServiceIdentity = v.GetString("migration.service_identity")
	}

	if cfg.BatchSize < 1 {
		return cfg, fmt.Errorf("migration.batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("migration.workers must be positive, got %d", cfg.Workers)
	}

	return cfg, nil
}
