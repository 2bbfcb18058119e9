package dbconn

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jfoltran/dbsync/internal/config"
)

func TestClassify_HostNotResolvable(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}
	ctx := context.Background()
	got := classify(ctx, dnsErr)
	if got.Kind != KindHostNotResolvable {
		t.Errorf("Kind = %v, want KindHostNotResolvable", got.Kind)
	}
}

func TestClassify_HandshakeTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	got := classify(ctx, errors.New("boom"))
	if got.Kind != KindHandshakeTimeout {
		t.Errorf("Kind = %v, want KindHandshakeTimeout", got.Kind)
	}
}

func TestClassify_Generic(t *testing.T) {
	ctx := context.Background()
	got := classify(ctx, errors.New("something else"))
	if got.Kind != KindGeneric {
		t.Errorf("Kind = %v, want KindGeneric", got.Kind)
	}
}

func TestConnect_RefusedOnUnreachablePort(t *testing.T) {
	params := config.ConnectionParams{
		Host:           "127.0.0.1",
		Port:           1,
		User:           "nobody",
		Database:       "nope",
		ConnectTimeout: 2 * time.Second,
	}
	_, err := Connect(context.Background(), params)
	if err == nil {
		t.Fatal("Connect() expected error for unreachable port")
	}
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %T", err)
	}
}
