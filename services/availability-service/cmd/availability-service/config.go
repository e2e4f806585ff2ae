package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
)

type settings struct {
	Engine          availability.Config
	SlowThreshold   time.Duration
	SnapshotTTL     time.Duration
	RateLimit       int
	RequestTimeout  time.Duration
	CORSOrigins     string
	RulesFile       string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string
	RateLimitFailOpen bool
}

func loadSettings() (settings, error) {
	var s settings
	var err error

	s.Engine = availability.DefaultConfig()
	if s.Engine.Policy.Ambiguous, err = availability.ParseAmbiguousPolicy(config.String("AMBIGUOUS_TIME_POLICY", "")); err != nil {
		return s, err
	}
	if s.Engine.Policy.Gap, err = availability.ParseGapPolicy(config.String("GAP_TIME_POLICY", "")); err != nil {
		return s, err
	}
	if s.Engine.MaxRangeDays, err = config.Int("MAX_RANGE_DAYS", s.Engine.MaxRangeDays); err != nil {
		return s, err
	}
	if s.Engine.Parallelism, err = config.Int("ENGINE_PARALLELISM", s.Engine.Parallelism); err != nil {
		return s, err
	}
	if s.SlowThreshold, err = config.Duration("SLOW_THRESHOLD_MS", availability.DefaultSlowThreshold, time.Millisecond); err != nil {
		return s, err
	}
	if s.SnapshotTTL, err = config.Duration("SNAPSHOT_CACHE_TTL", 30*time.Second, time.Second); err != nil {
		return s, err
	}
	if s.RateLimit, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return s, err
	}
	if s.RequestTimeout, err = config.Duration("REQUEST_TIMEOUT", 5*time.Second, time.Second); err != nil {
		return s, err
	}

	s.CORSOrigins = config.String("CORS_ALLOWED_ORIGINS", "")
	s.RulesFile = config.String("RULES_FILE", "")
	s.DatabaseURL = config.String("DATABASE_URL", "")
	s.RedisAddr = config.String("REDIS_ADDR", "")
	s.RedisPassword = config.String("REDIS_PASSWORD", "")
	s.KafkaBrokers = config.String("KAFKA_BROKERS", "")
	s.RateLimitFailOpen = config.Bool("RATE_LIMIT_FAIL_OPEN", true)

	if s.RulesFile == "" && s.DatabaseURL == "" {
		return s, fmt.Errorf("one of RULES_FILE or DATABASE_URL is required")
	}
	return s, nil
}
