// Package config reads the server's env-var tunables. Grounded on the
// teacher's getenvInt/getDurEnv helpers (cmd/server/main.go,
// internal/router/router.go): no config file, same default-on-missing
// behavior, just a wider set of knobs for the KV server domain.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is every env-var-overridable constant the original exposed as
// a compile-time constant (MAX_FD, MAX_THREADS, TIMESLOT, array size).
type Config struct {
	Addr string

	Workers int // MAX_THREADS
	MaxConn int // MAX_FD

	TimeSlot    time.Duration // tick period for the timer wheel
	IdleTimeout time.Duration // expire = now + 3*TimeSlot in the original

	ArrayCapacity int
	HashBuckets   int
	TreeCapacity  int
}

// Load builds a Config from the environment, falling back to the
// original's compile-time defaults everywhere a var is unset.
func Load() Config {
	timeSlot := getDurEnv("KVWS_TIMESLOT", 5*time.Second)
	return Config{
		Addr:    getenvStr("KVWS_ADDR", ":8080"),
		Workers: getenvInt("KVWS_WORKERS", 4),
		MaxConn: getenvInt("KVWS_MAX_CONN", 65535),

		TimeSlot:    timeSlot,
		IdleTimeout: getDurEnv("KVWS_IDLE_TIMEOUT", 3*timeSlot),

		ArrayCapacity: getenvInt("KVWS_ARRAY_CAPACITY", 1024),
		HashBuckets:   getenvInt("KVWS_HASH_BUCKETS", 1024),
		TreeCapacity:  getenvInt("KVWS_TREE_CAPACITY", 1024),
	}
}

func getenvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getDurEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
