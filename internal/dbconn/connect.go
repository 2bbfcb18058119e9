// Package dbconn is the connection factory: it parses a database URL,
// decides TLS policy, opens a pgx connection with a bounded handshake
// timeout, and confirms liveness with a trivial round-trip before handing
// the connection back.
package dbconn

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfoltran/dbsync/internal/config"
)

// Kind distinguishes why a connection attempt failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindHostNotResolvable
	KindConnectionRefused
	KindAuthFailed
	KindDatabaseNotFound
	KindTLSFailed
	KindHandshakeTimeout
	KindGeneric
)

// Error wraps a connection failure with its taxonomy kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Connect opens a live connection using params, applying the TLS policy
// disabled for loopback hosts or when SSLEnabled is false,
// otherwise enabled with certificate verification disabled (the target
// fleet this engine talks to is not expected to present a CA-signed
// certificate chain).
func Connect(ctx context.Context, params config.ConnectionParams) (*pgx.Conn, error) {
	connCtx, cancel := context.WithTimeout(ctx, params.ConnectTimeout)
	defer cancel()

	pgxCfg, err := pgx.ParseConfig(params.DSN())
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Err: fmt.Errorf("parse connection params: %w", err)}
	}

	if params.SSLEnabled {
		pgxCfg.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	} else {
		pgxCfg.TLSConfig = nil
	}

	conn, err := pgx.ConnectConfig(connCtx, pgxCfg)
	if err != nil {
		return nil, classify(connCtx, err)
	}

	if err := conn.Ping(connCtx); err != nil {
		_ = conn.Close(context.Background())
		return nil, classify(connCtx, err)
	}

	return conn, nil
}

// OpenPool builds a pgxpool.Pool for sustained use across an entire run
// (schema inspection, planning, restores, sequence reconciliation), rather
// than the single short-lived connection Connect returns for a one-shot
// liveness probe.
func OpenPool(ctx context.Context, params config.ConnectionParams) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(params.DSN())
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Err: fmt.Errorf("parse pool config: %w", err)}
	}
	poolCfg.ConnConfig.ConnectTimeout = params.ConnectTimeout

	if params.SSLEnabled {
		poolCfg.ConnConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	} else {
		poolCfg.ConnConfig.TLSConfig = nil
	}

	connCtx, cancel := context.WithTimeout(ctx, params.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, classify(connCtx, err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, classify(connCtx, err)
	}
	return pool, nil
}

func classify(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindHandshakeTimeout, Err: fmt.Errorf("connection handshake timed out: %w", err)}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindHostNotResolvable, Err: fmt.Errorf("host not resolvable: %w", err)}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &Error{Kind: KindConnectionRefused, Err: fmt.Errorf("connection refused: %w", err)}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28P01", "28000":
			return &Error{Kind: KindAuthFailed, Err: fmt.Errorf("authentication failed: %w", err)}
		case "3D000":
			return &Error{Kind: KindDatabaseNotFound, Err: fmt.Errorf("database not found: %w", err)}
		}
	}

	var tlsErr *tls.RecordHeaderError
	if errors.As(err, &tlsErr) {
		return &Error{Kind: KindTLSFailed, Err: fmt.Errorf("tls negotiation failed: %w", err)}
	}

	return &Error{Kind: KindGeneric, Err: err}
}
