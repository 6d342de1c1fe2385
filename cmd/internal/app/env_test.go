package app

import (
	"testing"
	"time"
)

func TestEnvString(t *testing.T) {
	t.Setenv("TEST_ENV_STRING", "  value  ")
	if got := EnvString("TEST_ENV_STRING", "def"); got != "value" {
		t.Errorf("got %q, want trimmed value", got)
	}
	if got := EnvString("TEST_ENV_STRING_MISSING", "def"); got != "def" {
		t.Errorf("got %q, want default", got)
	}
}

func TestEnvStrings(t *testing.T) {
	t.Setenv("TEST_ENV_STRINGS", " a, b ,,c ")
	got := EnvStrings("TEST_ENV_STRINGS", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}

	t.Setenv("TEST_ENV_STRINGS", " , ,")
	if got := EnvStrings("TEST_ENV_STRINGS", []string{"fallback"}); len(got) != 1 || got[0] != "fallback" {
		t.Errorf("all-empty list: got %v, want fallback", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_ENV_BOOL", "true")
	if !EnvBool("TEST_ENV_BOOL", false) {
		t.Error("expected true")
	}
	t.Setenv("TEST_ENV_BOOL", "not-a-bool")
	if !EnvBool("TEST_ENV_BOOL", true) {
		t.Error("invalid value should fall back to default")
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_ENV_DURATION", "90s")
	if got := EnvDuration("TEST_ENV_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("got %v, want 90s", got)
	}
	t.Setenv("TEST_ENV_DURATION", "-5s")
	if got := EnvDuration("TEST_ENV_DURATION", time.Minute); got != time.Minute {
		t.Errorf("non-positive duration: got %v, want default", got)
	}
}

func TestEnvInt32(t *testing.T) {
	t.Setenv("TEST_ENV_INT32", "25")
	if got := EnvInt32("TEST_ENV_INT32", 10); got != 25 {
		t.Errorf("got %d, want 25", got)
	}
	t.Setenv("TEST_ENV_INT32", "-1")
	if got := EnvInt32("TEST_ENV_INT32", 10); got != 10 {
		t.Errorf("negative: got %d, want default", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SPLITBITE_HTTP_ADDR", "")
	t.Setenv("SPLITBITE_SWEEP_INTERVAL", "")
	t.Setenv("SPLITBITE_DB_SCHEMA", "")

	cfg := LoadConfig()
	if cfg.HTTPAddr == "" {
		t.Error("HTTPAddr default missing")
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want 1h", cfg.SweepInterval)
	}
	if cfg.DBSchema != "splitbite" {
		t.Errorf("DBSchema = %q, want splitbite", cfg.DBSchema)
	}
}
