package module

import (
	"time"

	"agentpulse/internal/platform/config"
)

// Options holds configuration options for the aggregation engine
type Options struct {
	Location      *time.Location
	Lookback      time.Duration
	Workers       int
	WriteRetries  int
	RetryBase     time.Duration
	LoadTimeout   time.Duration
	WriteTimeout  time.Duration
	BucketTimeout time.Duration
	MaxBuckets    int
	GlobalGuard   bool
	LockName      string
	Agents        []string
	TablePath     string
	Mirror        bool
	NotifySubject string
}

// FromConfig reads the engine options from config with CORE_AGGREGATE_ prefix
func FromConfig(cfg config.Conf) Options {
	ag := cfg.Prefix("CORE_AGGREGATE_")
	return Options{
		Location:      ag.MayLocation("TZ", "Asia/Dubai"),
		Lookback:      ag.MayDuration("LOOKBACK", 6*time.Hour),
		Workers:       ag.MayInt("WORKERS", 8),
		WriteRetries:  ag.MayInt("WRITE_RETRIES", 3),
		RetryBase:     ag.MayDuration("RETRY_BASE", 250*time.Millisecond),
		LoadTimeout:   ag.MayDuration("LOAD_TIMEOUT", 30*time.Second),
		WriteTimeout:  ag.MayDuration("WRITE_TIMEOUT", 10*time.Second),
		BucketTimeout: ag.MayDuration("BUCKET_TIMEOUT", 0),
		MaxBuckets:    ag.MayInt("MAX_BUCKETS", 744),
		GlobalGuard:   ag.MayBool("GLOBAL_GUARD", true),
		LockName:      ag.MayString("LOCK_NAME", "agentpulse.aggregate"),
		Agents:        ag.MayCSV("AGENTS", nil),
		TablePath:     ag.MayString("TABLE_PATH", ""),
		Mirror:        ag.MayBool("MIRROR", false),
		NotifySubject: ag.MayString("NOTIFY_SUBJECT", "agentpulse.buckets.aggregated"),
	}
}
