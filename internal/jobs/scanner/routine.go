package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"ipsentry/internal/config"
	"ipsentry/internal/support"
)

const (
	scanLockKey        = "ipsentry:leader:anomaly_scan"
	fallbackInterval   = time.Hour
	singleScanDeadline = 5 * time.Minute
)

// StartAnomalyScanRoutine runs the scanner on the configured cadence.
// Instances coordinate through a Redis leadership lock so only one scans
// at a time; without Redis the loop runs standalone, which the idempotent
// writes tolerate.
func StartAnomalyScanRoutine(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	var intervalValue atomic.Value
	initialInterval := config.GetScanInterval()
	if initialInterval <= 0 {
		initialInterval = fallbackInterval
	}
	intervalValue.Store(initialInterval)

	updateSignal := make(chan struct{}, 1)
	updates := config.ScanIntervalUpdates()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case newInterval := <-updates:
				if newInterval <= 0 {
					newInterval = fallbackInterval
				}
				intervalValue.Store(newInterval)
				select {
				case updateSignal <- struct{}{}:
				default:
				}
			}
		}
	}()

	err := support.RunWithLeader(ctx, scanLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runScanLoop(leaderCtx, &intervalValue, updateSignal)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("Anomaly scan leadership unavailable, running standalone", "error", err)
		runScanLoop(ctx, &intervalValue, updateSignal)
	}
}

func runScanLoop(ctx context.Context, intervalValue *atomic.Value, updateSignal <-chan struct{}) {
	currentInterval := intervalValue.Load().(time.Duration)
	if currentInterval <= 0 {
		currentInterval = fallbackInterval
	}

	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scanOnce(ctx)
		case <-updateSignal:
			newInterval := intervalValue.Load().(time.Duration)
			if newInterval <= 0 {
				newInterval = fallbackInterval
			}
			if newInterval == currentInterval {
				continue
			}
			drainTicker(ticker)
			currentInterval = newInterval
			ticker.Reset(currentInterval)
		}
	}
}

func drainTicker(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
		default:
			return
		}
	}
}

func scanOnce(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, singleScanDeadline)
	defer cancel()

	if err := Scan(scanCtx, time.Now().UTC()); err != nil {
		log.Error("Anomaly scan failed", "error", err)
	}
}
