package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultScanInterval  = time.Hour
	defaultAnomalyWindow = time.Hour
	defaultGeoCacheTTL   = 24 * time.Hour
)

var (
	scanInterval  atomic.Value
	anomalyWindow atomic.Value
	geoCacheTTL   atomic.Value
	scanListeners []chan time.Duration
	listenersMu   sync.Mutex
)

func init() {
	scanInterval.Store(defaultScanInterval)
	anomalyWindow.Store(defaultAnomalyWindow)
	geoCacheTTL.Store(defaultGeoCacheTTL)
}

// SetIntervals recomputes the derived durations from the current config.
func SetIntervals() {
	cfg := GetConfig()
	setScanInterval(calculateInterval(cfg.Anomaly.ScanTimer, defaultScanInterval))
	anomalyWindow.Store(calculateInterval(cfg.Anomaly.Window, defaultAnomalyWindow))
	geoCacheTTL.Store(calculateInterval(cfg.Geo.CacheTTL, defaultGeoCacheTTL))
}

func calculateInterval(timer Timer, fallback time.Duration) time.Duration {
	if timer.Days == 0 && timer.Hours == 0 && timer.Minutes == 0 && timer.Seconds == 0 {
		return fallback
	}
	return CalculateBetweenTime(timer)
}

func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMillisecondsOfPeriod(timer)

	// Enforce minimum interval
	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMillisecondsOfPeriod(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

func GetScanInterval() time.Duration {
	return scanInterval.Load().(time.Duration)
}

func GetAnomalyWindow() time.Duration {
	return anomalyWindow.Load().(time.Duration)
}

func GetGeoCacheTTL() time.Duration {
	return geoCacheTTL.Load().(time.Duration)
}

// ScanIntervalUpdates returns a channel that receives the current scan
// interval immediately and every later change.
func ScanIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	scanListeners = append(scanListeners, ch)
	listenersMu.Unlock()

	ch <- GetScanInterval()
	return ch
}

func setScanInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultScanInterval
	}

	current := GetScanInterval()
	if current == interval {
		return
	}

	scanInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range scanListeners {
		select {
		case ch <- interval:
		default:
		}
	}
}
