package support

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("IPSENTRY_TEST_ENV", "value")
	if got := GetEnv("IPSENTRY_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("GetEnv returned %s, want value", got)
	}

	if got := GetEnv("IPSENTRY_TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv returned %s, want fallback", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("IPSENTRY_TEST_INT", "42")
	if got := GetEnvInt("IPSENTRY_TEST_INT", 7); got != 42 {
		t.Fatalf("GetEnvInt returned %d, want 42", got)
	}

	t.Setenv("IPSENTRY_TEST_INT", "not-a-number")
	if got := GetEnvInt("IPSENTRY_TEST_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt returned %d, want fallback 7", got)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !CheckPasswordHash("correct horse battery staple", hash) {
		t.Fatal("CheckPasswordHash rejected the original password")
	}

	if CheckPasswordHash("wrong password", hash) {
		t.Fatal("CheckPasswordHash accepted a wrong password")
	}
}
