// Package config defines SyncConfig, the single externally supplied value
// that drives the synchronization engine, along with its derived
// ConnectionParams and validation rules.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConnectionParams are the parameters used to open a database connection,
// derived solely from a URL plus an SSL flag.
type ConnectionParams struct {
	Host           string
	Port           uint16
	User           string
	Password       string
	Database       string
	SSLEnabled     bool
	ConnectTimeout time.Duration
}

const defaultConnectTimeout = 30 * time.Second

// ParseConnectionURL parses a postgres/postgresql URL into ConnectionParams.
// sslEnabled is downgraded to false for loopback hosts regardless of the
// caller's intent; it is never upgraded to true for a loopback host (see
// isLoopbackHost for what counts as one).
func ParseConnectionURL(rawURL string, sslEnabled bool) (ConnectionParams, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ConnectionParams{}, fmt.Errorf("invalid connection url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return ConnectionParams{}, fmt.Errorf("unsupported url scheme %q (expected postgres or postgresql)", u.Scheme)
	}
	if u.Hostname() == "" {
		return ConnectionParams{}, errors.New("connection url has no host")
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return ConnectionParams{}, errors.New("connection url has no database name")
	}

	port := uint16(5432)
	if p := u.Port(); p != "" {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return ConnectionParams{}, fmt.Errorf("invalid port in connection url: %w", err)
		}
		port = uint16(v)
	}

	params := ConnectionParams{
		Host:           u.Hostname(),
		Port:           port,
		Database:       dbName,
		SSLEnabled:     sslEnabled && !isLoopbackHost(u.Hostname()),
		ConnectTimeout: defaultConnectTimeout,
	}
	if u.User != nil {
		params.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			params.Password = pw
		}
	}
	return params, nil
}

// isLoopbackHost reports whether host names the loopback interface, the
// rule that forces TLS off regardless of the SSL flag. Only the literal
// "localhost" and loopback IP addresses count; other host names are not
// resolved, so a name that resolves to a loopback address keeps TLS on.
func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// DSN renders a standard PostgreSQL connection string for these params.
func (p ConnectionParams) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	q := u.Query()
	if p.SSLEnabled {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ProgressServerConfig configures the optional local progress bridge.
type ProgressServerConfig struct {
	Enabled    bool
	ListenAddr string
	AuthToken  string
}

// SyncConfig is the only externally supplied value driving a sync run.
type SyncConfig struct {
	SourceURL         string
	TargetURL         string
	IntervalMinutes   int
	ExcludeTables     []string
	MaxParallelTables int
	SourceSSLEnabled  bool
	TargetSSLEnabled  bool
	TempRoot          string
	ProgressServer    ProgressServerConfig
}

// Defaults returns a SyncConfig with every default-bearing field populated.
func Defaults() SyncConfig {
	return SyncConfig{
		IntervalMinutes:   60,
		MaxParallelTables: 3,
		SourceSSLEnabled:  true,
		TargetSSLEnabled:  true,
		TempRoot:          defaultTempRoot(),
		ProgressServer: ProgressServerConfig{
			ListenAddr: ":8089",
		},
	}
}

func defaultTempRoot() string {
	return os.TempDir() + string(os.PathSeparator) + "db-sync"
}

// ExcludeSet returns ExcludeTables as a lookup set.
func (c SyncConfig) ExcludeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ExcludeTables))
	for _, t := range c.ExcludeTables {
		set[t] = struct{}{}
	}
	return set
}

// Validate checks every constraint in one pass and aggregates every
// violation into a single joined error, rather than failing on the first.
func (c *SyncConfig) Validate() error {
	var errs []error

	if _, err := ParseConnectionURL(c.SourceURL, c.SourceSSLEnabled); err != nil {
		errs = append(errs, fmt.Errorf("source url: %w", err))
	}
	if _, err := ParseConnectionURL(c.TargetURL, c.TargetSSLEnabled); err != nil {
		errs = append(errs, fmt.Errorf("target url: %w", err))
	}

	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 60
	}
	if c.IntervalMinutes < 1 || c.IntervalMinutes > 1440 {
		errs = append(errs, fmt.Errorf("interval minutes must be between 1 and 1440, got %d", c.IntervalMinutes))
	}

	if c.MaxParallelTables == 0 {
		c.MaxParallelTables = 3
	}
	if c.MaxParallelTables < 1 || c.MaxParallelTables > 10 {
		errs = append(errs, fmt.Errorf("max parallel tables must be between 1 and 10, got %d", c.MaxParallelTables))
	}

	if c.TempRoot == "" {
		c.TempRoot = defaultTempRoot()
	}

	return errors.Join(errs...)
}

// SourceConnectionParams derives ConnectionParams for the source database.
func (c SyncConfig) SourceConnectionParams() (ConnectionParams, error) {
	return ParseConnectionURL(c.SourceURL, c.SourceSSLEnabled)
}

// TargetConnectionParams derives ConnectionParams for the target database.
func (c SyncConfig) TargetConnectionParams() (ConnectionParams, error) {
	return ParseConnectionURL(c.TargetURL, c.TargetSSLEnabled)
}
