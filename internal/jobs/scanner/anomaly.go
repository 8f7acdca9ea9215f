package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"ipsentry/internal/config"
	"ipsentry/internal/database"
)

const (
	defaultWindow    = time.Hour
	defaultThreshold = 100
)

var defaultSensitivePaths = []string{"/admin", "/login"}

// Options are the scan policy knobs. Zero values fall back to the
// defaults so callers only set what they override.
type Options struct {
	Window           time.Duration
	RequestThreshold int
	SensitivePaths   []string
}

func optionsFromConfig() Options {
	cfg := config.GetConfig()
	return Options{
		Window:           config.GetAnomalyWindow(),
		RequestThreshold: int(cfg.Anomaly.RequestThreshold),
		SensitivePaths:   cfg.Anomaly.SensitivePaths,
	}
}

// Scan reads the audit window ending at now and files suspicion records
// using the configured policy.
func Scan(ctx context.Context, now time.Time) error {
	return ScanWithOptions(ctx, now, optionsFromConfig())
}

// ScanWithOptions aggregates the window once and runs both detection
// passes over the same snapshot: per-address volume against the
// threshold, and sensitive-path prefix hits. Every finding goes through
// the idempotent insert-if-absent write, so re-running over an unchanged
// window adds nothing. Any storage failure aborts the scan loudly; the
// next scheduled run re-reads an overlapping window and loses nothing.
func ScanWithOptions(ctx context.Context, now time.Time, opts Options) error {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.RequestThreshold <= 0 {
		opts.RequestThreshold = defaultThreshold
	}
	if len(opts.SensitivePaths) == 0 {
		opts.SensitivePaths = defaultSensitivePaths
	}

	from := now.Add(-opts.Window)
	logs, err := database.RequestLogsBetween(ctx, from, now)
	if err != nil {
		return fmt.Errorf("scanner: read request window: %w", err)
	}
	if len(logs) == 0 {
		return nil
	}

	var created int

	counts := make(map[string]int64, len(logs))
	for _, entry := range logs {
		counts[entry.IPAddress]++

		if !matchesSensitivePath(entry.Path, opts.SensitivePaths) {
			continue
		}

		reason := fmt.Sprintf("Accessed sensitive path: %s", entry.Path)
		inserted, err := database.GetOrCreateSuspiciousIP(ctx, entry.IPAddress, reason)
		if err != nil {
			return fmt.Errorf("scanner: record sensitive-path hit: %w", err)
		}
		if inserted {
			created++
		}
	}

	for address, count := range counts {
		if count <= int64(opts.RequestThreshold) {
			continue
		}

		reason := fmt.Sprintf("Exceeded %d requests %s (%d requests)", opts.RequestThreshold, windowPhrase(opts.Window), count)
		inserted, err := database.GetOrCreateSuspiciousIP(ctx, address, reason)
		if err != nil {
			return fmt.Errorf("scanner: record volumetric hit: %w", err)
		}
		if inserted {
			created++
		}
	}

	if created > 0 {
		log.Info("Anomaly scan flagged new suspicious addresses", "created", created, "window_entries", len(logs))
	} else {
		log.Debug("Anomaly scan completed without new findings", "window_entries", len(logs))
	}

	return nil
}

// windowPhrase renders the scan window for the suspicion reason text.
func windowPhrase(window time.Duration) string {
	switch {
	case window == time.Hour:
		return "in the past hour"
	case window%time.Hour == 0:
		return fmt.Sprintf("in the past %d hours", window/time.Hour)
	case window%time.Minute == 0:
		return fmt.Sprintf("in the past %d minutes", window/time.Minute)
	default:
		return fmt.Sprintf("in the past %s", window)
	}
}

func matchesSensitivePath(path string, sensitive []string) bool {
	for _, prefix := range sensitive {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
