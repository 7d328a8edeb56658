// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/nbn"
)

type LogCfg struct {
	Level   string
	Console bool
	SampleN int
}

type UpstreamCfg struct {
	SpeciesURL        string
	OccurrenceURL     string
	SpeciesTimeout    time.Duration
	OccurrenceTimeout time.Duration
	PageDelay         time.Duration
	RPS               float64
	Burst             int
	UserAgent         string
}

type SessionCfg struct {
	Driver         string // memory | redis
	Capacity       int
	TTL            time.Duration
	RedisAddr      string
	CacheOpTimeout time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type MetricsCfg struct {
	Enabled   bool
	Addr      string
	Path      string
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	Addr            string
	Log             LogCfg
	Upstream        UpstreamCfg
	DefaultPageSize int
	DefaultYearFrom int
	HexRes          int
	Session         SessionCfg
	Events          EventsCfg
	Metrics         MetricsCfg
}

func FromEnv() Config {
	hexRes := getint("HEX_RES", 6)
	if hexRes < 0 || hexRes > 15 {
		hexRes = 6
	}
	pageSize := getint("DEFAULT_PAGE_SIZE", 500)
	if pageSize <= 0 {
		pageSize = 500
	}

	driver := strings.ToLower(getenv("SESSION_STORE", "memory"))
	if driver != "redis" {
		driver = "memory"
	}

	return Config{
		Addr: getenv("ADDR", ":8090"),
		Log: LogCfg{
			Level:   getenv("LOG_LEVEL", "info"),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		Upstream: UpstreamCfg{
			SpeciesURL:        getenv("SPECIES_SEARCH_URL", nbn.DefaultSpeciesSearchURL),
			OccurrenceURL:     getenv("OCCURRENCE_SEARCH_URL", nbn.DefaultOccurrenceSearchURL),
			SpeciesTimeout:    getduration("SPECIES_TIMEOUT", 30*time.Second),
			OccurrenceTimeout: getduration("OCCURRENCE_TIMEOUT", 60*time.Second),
			PageDelay:         getduration("PAGE_DELAY", 200*time.Millisecond),
			RPS:               getfloat("UPSTREAM_RPS", 5),
			Burst:             getint("UPSTREAM_BURST", 1),
			UserAgent:         getenv("UPSTREAM_USER_AGENT", "occurrence-explorer/1.0"),
		},
		DefaultPageSize: pageSize,
		DefaultYearFrom: getint("DEFAULT_YEAR_FROM", 2000),
		HexRes:          hexRes,
		Session: SessionCfg{
			Driver:         driver,
			Capacity:       getint("SESSION_CAPACITY", 1024),
			TTL:            getduration("SESSION_TTL", time.Hour),
			RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
			CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "occurrence-fetches"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		Metrics: MetricsCfg{
			Enabled:   getbool("METRICS_ENABLED", true),
			Addr:      getenv("METRICS_ADDR", ""),
			Path:      getenv("METRICS_PATH", "/metrics"),
			Version:   getenv("BUILD_VERSION", "dev"),
			Revision:  getenv("BUILD_REVISION", ""),
			Branch:    getenv("BUILD_BRANCH", ""),
			BuildDate: getenv("BUILD_DATE", ""),
		},
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

// "a:9092, b:9092" -> [a:9092 b:9092]
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
