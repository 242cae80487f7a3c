package erp

import "testing"

func TestParseEnvironmentCode(t *testing.T) {
	tests := []struct {
		name         string
		code         string
		wantDiscount int
		wantALM2     int64
	}{
		{"discount and account", "20345", 20, 345},
		{"single digit discount padded", "05345", 5, 345},
		{"long account id", "1512345678", 15, 12345678},
		{"empty", "", 0, 0},
		{"too short", "20", 0, 0},
		{"non-numeric discount", "XY345", 0, 0},
		{"non-numeric account", "20ABC", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, alm2 := ParseEnvironmentCode(tt.code)
			if discount != tt.wantDiscount || alm2 != tt.wantALM2 {
				t.Errorf("ParseEnvironmentCode(%q) = (%d, %d), want (%d, %d)",
					tt.code, discount, alm2, tt.wantDiscount, tt.wantALM2)
			}
		})
	}
}

func TestOdooCoercions(t *testing.T) {
	if got := asString("hola"); got != "hola" {
		t.Errorf("asString = %q", got)
	}
	if got := asInt64(float64(42)); got != 42 {
		t.Errorf("asInt64 = %d", got)
	}
	// Odoo sends false where other APIs send null.
	if asBool(false) || asBool(nil) {
		t.Error("asBool must treat false/nil as false")
	}
	if got := relationName([]any{float64(3), "Torton"}); got != "Torton" {
		t.Errorf("relationName = %q", got)
	}
	if got := relationName(false); got != "" {
		t.Errorf("relationName(false) = %q, want empty", got)
	}
}
