package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()

	if got.MaxOpenConns != 25 {
		t.Fatalf("MaxOpenConns = %d, want 25", got.MaxOpenConns)
	}
	if got.MaxIdleConns != 25 {
		t.Fatalf("MaxIdleConns = %d, want 25", got.MaxIdleConns)
	}
	if got.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("ConnMaxLifetime = %v, want 30m", got.ConnMaxLifetime)
	}
	if got.ConnMaxIdleTime != 5*time.Minute {
		t.Fatalf("ConnMaxIdleTime = %v, want 5m", got.ConnMaxIdleTime)
	}
	if got.PingTimeout != 5*time.Second {
		t.Fatalf("PingTimeout = %v, want 5s", got.PingTimeout)
	}
}

func TestPostgresPoolConfigDefaultsKeepExplicitValues(t *testing.T) {
	in := PostgresPoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
	}
	if got := in.withDefaults(); got != in {
		t.Fatalf("withDefaults() = %+v, want %+v", got, in)
	}
}
