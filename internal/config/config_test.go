package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadSafetyFlagsDefaultOn(t *testing.T) {
	t.Setenv("ENFORCE_STOCK_FLOOR", "")
	t.Setenv("VALIDATE_RETURN_QTY", "")

	cfg := Load()
	if !cfg.EnforceStockFloor {
		t.Fatalf("expected stock floor enforcement on by default")
	}
	if !cfg.ValidateReturnQty {
		t.Fatalf("expected return quantity validation on by default")
	}
}

func TestLoadSafetyFlagsCanBeDisabled(t *testing.T) {
	t.Setenv("ENFORCE_STOCK_FLOOR", "false")
	t.Setenv("VALIDATE_RETURN_QTY", "0")

	cfg := Load()
	if cfg.EnforceStockFloor {
		t.Fatalf("expected stock floor enforcement off")
	}
	if cfg.ValidateReturnQty {
		t.Fatalf("expected return quantity validation off")
	}
}
