package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the engine.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where assignflow stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the engine
	Version string

	// RetentionDays is how long soft-deleted series and instances stay in
	// the recycle bin before the purge runner removes them.
	RetentionDays int
	// PurgeSchedule is the cron spec of the recycle purge runner.
	PurgeSchedule string
	// NotifyRatePerSec throttles outgoing assignment notifications.
	NotifyRatePerSec float64
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from ASSIGNFLOW_* environment variables.
func (p *Profile) FromEnv() {
	if v := os.Getenv("ASSIGNFLOW_MODE"); v != "" {
		p.Mode = v
	}
	if v := os.Getenv("ASSIGNFLOW_DATA"); v != "" {
		p.Data = v
	}
	if v := os.Getenv("ASSIGNFLOW_DSN"); v != "" {
		p.DSN = v
	}
	if v := os.Getenv("ASSIGNFLOW_DRIVER"); v != "" {
		p.Driver = v
	}
	if v, err := strconv.Atoi(getEnvOrDefault("ASSIGNFLOW_RETENTION_DAYS", "")); err == nil && v > 0 {
		p.RetentionDays = v
	}
	if v := os.Getenv("ASSIGNFLOW_PURGE_SCHEDULE"); v != "" {
		p.PurgeSchedule = v
	}
	if v, err := strconv.ParseFloat(getEnvOrDefault("ASSIGNFLOW_NOTIFY_RATE", ""), 64); err == nil && v > 0 {
		p.NotifyRatePerSec = v
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/assignflow"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("assignflow_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.RetentionDays <= 0 {
		p.RetentionDays = 30
	}
	if p.PurgeSchedule == "" {
		p.PurgeSchedule = "0 3 * * *"
	}
	if p.NotifyRatePerSec <= 0 {
		p.NotifyRatePerSec = 20
	}

	return nil
}
