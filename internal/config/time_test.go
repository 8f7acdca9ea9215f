package config

import (
	"testing"
	"time"
)

func TestCalculateMillisecondsOfPeriod(t *testing.T) {
	timer := Timer{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}
	want := uint64((24*60*60 + 2*60*60 + 3*60 + 4) * 1000)

	if got := CalculateMillisecondsOfPeriod(timer); got != want {
		t.Fatalf("CalculateMillisecondsOfPeriod returned %d, want %d", got, want)
	}
}

func TestCalculateBetweenTime(t *testing.T) {
	t.Run("enforces minimum interval", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{}); got != time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1s", got)
		}
	})

	t.Run("returns configured duration", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{Minutes: 1, Seconds: 30}); got != 90*time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1m30s", got)
		}
	})
}

func TestSetIntervals(t *testing.T) {
	origCfg := GetConfig()
	origScan := GetScanInterval()
	origWindow := GetAnomalyWindow()
	origTTL := GetGeoCacheTTL()
	origListeners := scanListeners

	t.Cleanup(func() {
		configValue.Store(origCfg)
		scanInterval.Store(origScan)
		anomalyWindow.Store(origWindow)
		geoCacheTTL.Store(origTTL)
		scanListeners = origListeners
	})

	testCfg := Config{}
	testCfg.Anomaly.ScanTimer = Timer{Minutes: 30}
	testCfg.Anomaly.Window = Timer{Hours: 2}
	testCfg.Geo.CacheTTL = Timer{Hours: 12}

	configValue.Store(testCfg)
	scanListeners = nil

	SetIntervals()

	if got := GetScanInterval(); got != 30*time.Minute {
		t.Fatalf("GetScanInterval returned %s, want 30m", got)
	}
	if got := GetAnomalyWindow(); got != 2*time.Hour {
		t.Fatalf("GetAnomalyWindow returned %s, want 2h", got)
	}
	if got := GetGeoCacheTTL(); got != 12*time.Hour {
		t.Fatalf("GetGeoCacheTTL returned %s, want 12h", got)
	}
}

func TestSetIntervalsFallsBackOnZeroTimers(t *testing.T) {
	origCfg := GetConfig()
	origScan := GetScanInterval()
	origWindow := GetAnomalyWindow()
	origTTL := GetGeoCacheTTL()

	t.Cleanup(func() {
		configValue.Store(origCfg)
		scanInterval.Store(origScan)
		anomalyWindow.Store(origWindow)
		geoCacheTTL.Store(origTTL)
	})

	configValue.Store(Config{})
	SetIntervals()

	if got := GetScanInterval(); got != time.Hour {
		t.Fatalf("GetScanInterval returned %s, want 1h", got)
	}
	if got := GetAnomalyWindow(); got != time.Hour {
		t.Fatalf("GetAnomalyWindow returned %s, want 1h", got)
	}
	if got := GetGeoCacheTTL(); got != 24*time.Hour {
		t.Fatalf("GetGeoCacheTTL returned %s, want 24h", got)
	}
}
