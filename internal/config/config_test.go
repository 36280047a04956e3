package config

import "testing"

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load with no DB_DSN succeeded")
	}

	t.Setenv("DB_DSN", "postgres://localhost/pairchat")
	if _, err := Load(); err == nil {
		t.Fatal("Load with no JWT_SECRET succeeded")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/pairchat")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADDR", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("DEBUG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.UploadDir != "uploads" {
		t.Errorf("UploadDir = %q, want uploads", cfg.UploadDir)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty (relay disabled)", cfg.RedisAddr)
	}
	if cfg.Debug {
		t.Error("Debug = true, want false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/pairchat")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADDR", ":9000")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q, want redis:6379", cfg.RedisAddr)
	}
}
