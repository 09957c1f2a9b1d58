package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadPolicyFallbacks(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "")
	t.Setenv("POINTS_CURRENCY_UNIT", "")
	t.Setenv("DAILY_POINTS_LIMIT", "")
	t.Setenv("ALLOW_OVERSELL", "")

	cfg := Load()
	if cfg.TaxRatePercent.String() != "16" {
		t.Fatalf("expected tax fallback 16, got %s", cfg.TaxRatePercent)
	}
	if cfg.CurrencyUnit.String() != "10" {
		t.Fatalf("expected currency unit fallback 10, got %s", cfg.CurrencyUnit)
	}
	if cfg.DailyPointsLimit != 1000 {
		t.Fatalf("expected daily limit fallback 1000, got %d", cfg.DailyPointsLimit)
	}
	if !cfg.AllowOversell {
		t.Fatalf("expected oversell allowed by default")
	}
}

func TestLoadRejectsMalformedPolicyValues(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "not-a-number")
	t.Setenv("DAILY_POINTS_LIMIT", "-5")
	t.Setenv("ALLOW_OVERSELL", "maybe")

	cfg := Load()
	if cfg.TaxRatePercent.String() != "16" {
		t.Fatalf("expected tax fallback on parse error, got %s", cfg.TaxRatePercent)
	}
	if cfg.DailyPointsLimit != 1000 {
		t.Fatalf("expected daily limit fallback on negative input, got %d", cfg.DailyPointsLimit)
	}
	if !cfg.AllowOversell {
		t.Fatalf("expected oversell fallback on unparsable input")
	}
}

func TestAddress(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.Address())
	}
}
