package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" || cfg.OpTimeout != 30*time.Second || cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.TokenTTL != 30*24*time.Hour || cfg.PendingSweep != 10*time.Minute {
		t.Errorf("Unexpected durations %+v", cfg)
	}
	if cfg.Location.String() != "Asia/Kolkata" {
		t.Error("Expected Asia/Kolkata, got", cfg.Location)
	}
	if cfg.TrustedProxies != nil {
		t.Error("Expected no trusted proxies by default, got", cfg.TrustedProxies)
	}
	if cfg.SheetsTab != "CASPIAN_Coupons" || len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestLoadReportsAllProblems(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_OP_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, want := range []string{"DB is required", "JWT_SECRET", "DB_OP_TIMEOUT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Error("Unexpected proxies", cfg.TrustedProxies)
	}

	t.Setenv("TRUSTED_PROXIES", "loadbalancer")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "TRUSTED_PROXIES") {
		t.Error("Expected TRUSTED_PROXIES error, got", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example, ,https://b.example ")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Error("Unexpected split", got)
	}
}
