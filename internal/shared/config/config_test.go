package config

import (
	"testing"
	"time"
)

func TestLoadPortsBySService(t *testing.T) {
	cases := []struct {
		svc, http, metrics string
	}{
		{"ledger-service", "8080", "9095"},
		{"feed-service", "8090", "9096"},
	}
	for _, tc := range cases {
		t.Run(tc.svc, func(t *testing.T) {
			t.Setenv("SERVICE_NAME", tc.svc)
			cfg := Load()
			if cfg.HTTPPort != tc.http || cfg.MetricsPort != tc.metrics {
				t.Fatalf("ports = %s/%s, want %s/%s", cfg.HTTPPort, cfg.MetricsPort, tc.http, tc.metrics)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "ledger-service")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("CATALOG_CACHE_TTL", "not-a-duration")
	t.Setenv("INITIAL_BALANCE", "250.50")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("KAFKA_TOPIC_MATCH_SETTLED", "custom_settled")

	cfg := Load()

	if cfg.StoreDriver != "memory" {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Errorf("JWTTTL = %s", cfg.JWTTTL)
	}
	if cfg.CatalogCacheTTL != 30*time.Second {
		t.Errorf("CatalogCacheTTL = %s, want default", cfg.CatalogCacheTTL)
	}
	if cfg.InitialBalance.String() != "250.5" {
		t.Errorf("InitialBalance = %s", cfg.InitialBalance)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.TopicMatchSettled != "custom_settled" {
		t.Errorf("TopicMatchSettled = %q", cfg.TopicMatchSettled)
	}
}

func TestLoadRejectsNegativeBalance(t *testing.T) {
	t.Setenv("INITIAL_BALANCE", "-5")
	if got := Load().InitialBalance.String(); got != "1000" {
		t.Fatalf("InitialBalance = %s, want default 1000", got)
	}
}
