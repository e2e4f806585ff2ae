package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("MAX_RANGE_DAYS", "31")
	n, err := Int("MAX_RANGE_DAYS", 62)
	if err != nil || n != 31 {
		t.Fatalf("Int = %d, %v", n, err)
	}

	n, err = Int("UNSET_INT_KEY", 62)
	if err != nil || n != 62 {
		t.Fatalf("fallback = %d, %v", n, err)
	}

	t.Setenv("MAX_RANGE_DAYS", "lots")
	if _, err := Int("MAX_RANGE_DAYS", 62); err == nil {
		t.Fatal("expected error for non-integer")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("SLOW_THRESHOLD_MS", "250")
	d, err := Duration("SLOW_THRESHOLD_MS", 100*time.Millisecond, time.Millisecond)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("Duration = %s, %v", d, err)
	}

	t.Setenv("SNAPSHOT_CACHE_TTL", "90s")
	d, err = Duration("SNAPSHOT_CACHE_TTL", time.Minute, time.Second)
	if err != nil || d != 90*time.Second {
		t.Fatalf("Duration = %s, %v", d, err)
	}

	t.Setenv("SNAPSHOT_CACHE_TTL", "soon")
	if _, err := Duration("SNAPSHOT_CACHE_TTL", time.Minute, time.Second); err == nil {
		t.Fatal("expected error")
	}
}

func TestBool(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "off")
	if Bool("OTEL_ENABLED", true) {
		t.Fatal("off should be false")
	}
	t.Setenv("OTEL_ENABLED", "maybe")
	if !Bool("OTEL_ENABLED", true) {
		t.Fatal("unknown value should use fallback")
	}
}

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8080"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOTENV_ONLY=from-file\nDOTENV_SHADOWED=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTENV_SHADOWED", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_ONLY") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := String("DOTENV_ONLY", ""); got != "from-file" {
		t.Fatalf("DOTENV_ONLY = %q", got)
	}
	if got := String("DOTENV_SHADOWED", ""); got != "from-env" {
		t.Fatalf("DOTENV_SHADOWED = %q", got)
	}
}
