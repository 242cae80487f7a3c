package weighing

import "testing"

func TestSplitEntry(t *testing.T) {
	tests := []struct {
		name        string
		gross       int
		discount    int
		wantPrimary int
		wantALM2    int
	}{
		{"twenty percent", 1000, 20, 800, 200},
		{"no discount", 1000, 0, 1000, 0},
		{"odd product rounds half to even", 38725, 15, 32915, 5810},
		{"full discount", 5000, 100, 0, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitEntry(tt.gross, tt.discount)
			if got.PrimaryWeight != tt.wantPrimary || got.ALM2Weight != tt.wantALM2 {
				t.Errorf("SplitEntry(%d, %d) = {%d, %d}, want {%d, %d}",
					tt.gross, tt.discount, got.PrimaryWeight, got.ALM2Weight, tt.wantPrimary, tt.wantALM2)
			}
		})
	}
}

// The halves must always reconstruct the original gross exactly, for
// any discount. Rounding happens before the subtraction so the ALM2
// side absorbs the remainder.
func TestSplitEntry_Reconstruction(t *testing.T) {
	for gross := 100; gross <= 50000; gross += 137 {
		for discount := 0; discount <= 99; discount += 7 {
			got := SplitEntry(gross, discount)
			if got.PrimaryWeight+got.ALM2Weight != gross {
				t.Fatalf("SplitEntry(%d, %d): %d + %d != %d",
					gross, discount, got.PrimaryWeight, got.ALM2Weight, gross)
			}
		}
	}
}

func TestSplitClose(t *testing.T) {
	// gross 38725, tare 19225, 20% discount:
	// net 19500, reduced 15600, alm2 3900
	got := SplitClose(38725, 19225, 20)

	if got.NewNet != 15600 {
		t.Errorf("NewNet = %d, want 15600", got.NewNet)
	}
	if got.NewNetALM2 != 3900 {
		t.Errorf("NewNetALM2 = %d, want 3900", got.NewNetALM2)
	}
	if got.NewGross != 19225+15600 {
		t.Errorf("NewGross = %d, want %d", got.NewGross, 19225+15600)
	}
	if got.NewGrossALM2 != 19225+3900 {
		t.Errorf("NewGrossALM2 = %d, want %d", got.NewGrossALM2, 19225+3900)
	}
}

func TestSplitClose_NetsReconstructOriginal(t *testing.T) {
	for gross := 20000; gross <= 45000; gross += 311 {
		tare := 17500
		for discount := 0; discount <= 99; discount += 11 {
			got := SplitClose(gross, tare, discount)
			if got.NewNet+got.NewNetALM2 != gross-tare {
				t.Fatalf("SplitClose(%d, %d, %d): nets %d + %d != original net %d",
					gross, tare, discount, got.NewNet, got.NewNetALM2, gross-tare)
			}
		}
	}
}

func TestNetWeight(t *testing.T) {
	tests := []struct {
		name  string
		gross int
		tare  int
		want  int
	}{
		{"normal", 38000, 19000, 19000},
		{"tare exceeds gross clamps to zero", 15000, 19000, 0},
		{"zero gross", 0, 19000, 0},
		{"equal", 19000, 19000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NetWeight(tt.gross, tt.tare); got != tt.want {
				t.Errorf("NetWeight(%d, %d) = %d, want %d", tt.gross, tt.tare, got, tt.want)
			}
		})
	}
}
