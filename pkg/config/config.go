package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DB holds the connection parts for one backing store, as they appear in
// the run configuration file.
type DB struct {
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

// Params are the run parameters: the report date and the channel list.
type Params struct {
	Date     string   `json:"date"`
	Channels []string `json:"channels"`
}

// File mirrors the db_config.json layout: one MySQL config store, one
// Postgres detail/ledger store, plus the run parameters.
type File struct {
	CDS    DB     `json:"cds"`
	CDSPG  DB     `json:"cds_pg"`
	Params Params `json:"params"`
}

// Load reads and validates a run configuration. Any validation failure is
// fatal to the run: no channel work may start on a bad configuration.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the run parameters. The date must be a YYYY-MM-DD day
// and at least one channel must be configured.
func (f *File) Validate() error {
	if f.Params.Date == "" {
		return fmt.Errorf("config: params.date is required")
	}
	if _, err := time.Parse("2006-01-02", f.Params.Date); err != nil {
		return fmt.Errorf("config: params.date %q must be YYYY-MM-DD", f.Params.Date)
	}
	if len(f.Params.Channels) == 0 {
		return fmt.Errorf("config: params.channels must list at least one channel")
	}
	return nil
}

// MySQLURL renders the config-store DSN in URL form; the database opener
// normalizes it to the driver format.
func (d DB) MySQLURL() string {
	return fmt.Sprintf("mysql://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}

// PostgresDSN renders the detail-store DSN for the pgx driver.
func (d DB) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}
