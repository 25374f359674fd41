package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsWhenEnvUnset(t *testing.T) {
	c := Load()
	if c.Addr != ":8080" {
		t.Fatalf("Addr=%q want :8080", c.Addr)
	}
	if c.Workers != 4 {
		t.Fatalf("Workers=%d want 4", c.Workers)
	}
	if c.MaxConn != 65535 {
		t.Fatalf("MaxConn=%d want 65535", c.MaxConn)
	}
	if c.TimeSlot != 5*time.Second {
		t.Fatalf("TimeSlot=%v want 5s", c.TimeSlot)
	}
	if c.IdleTimeout != 15*time.Second {
		t.Fatalf("IdleTimeout=%v want 3*TimeSlot=15s", c.IdleTimeout)
	}
	if c.ArrayCapacity != 1024 || c.HashBuckets != 1024 || c.TreeCapacity != 1024 {
		t.Fatalf("capacities=%+v want all 1024", c)
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("KVWS_ADDR", ":9999")
	t.Setenv("KVWS_WORKERS", "8")
	t.Setenv("KVWS_ARRAY_CAPACITY", "2048")

	c := Load()
	if c.Addr != ":9999" {
		t.Fatalf("Addr=%q want :9999", c.Addr)
	}
	if c.Workers != 8 {
		t.Fatalf("Workers=%d want 8", c.Workers)
	}
	if c.ArrayCapacity != 2048 {
		t.Fatalf("ArrayCapacity=%d want 2048", c.ArrayCapacity)
	}
}

func TestLoad_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("KVWS_WORKERS", "not-a-number")
	t.Setenv("KVWS_MAX_CONN", "-5")

	c := Load()
	if c.Workers != 4 {
		t.Fatalf("Workers=%d want default 4 on invalid input", c.Workers)
	}
	if c.MaxConn != 65535 {
		t.Fatalf("MaxConn=%d want default 65535 on negative input", c.MaxConn)
	}
}
