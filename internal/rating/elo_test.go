package rating

import "testing"

func TestEloDeltaPinnedValues(t *testing.T) {
	tests := []struct {
		name          string
		winner, loser int
		k             int
		wantW, wantL  int
	}{
		{name: "favourite wins", winner: 1200, loser: 1000, k: 32, wantW: 8, wantL: -8},
		{name: "underdog wins", winner: 1000, loser: 1200, k: 32, wantW: 24, wantL: -24},
		{name: "equal ratings", winner: 1000, loser: 1000, k: 32, wantW: 16, wantL: -16},
		{name: "huge gap still moves", winner: 2400, loser: 1000, k: 32, wantW: 1, wantL: -1},
		{name: "k16", winner: 1500, loser: 1500, k: 16, wantW: 8, wantL: -8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, l := EloDelta(tt.winner, tt.loser, tt.k)
			if w != tt.wantW || l != tt.wantL {
				t.Fatalf("EloDelta(%d, %d, %d) = (%d, %d), want (%d, %d)", tt.winner, tt.loser, tt.k, w, l, tt.wantW, tt.wantL)
			}
		})
	}
}

func TestEloDeltaSignsAndSymmetry(t *testing.T) {
	for winner := 400; winner <= 2800; winner += 75 {
		for loser := 400; loser <= 2800; loser += 75 {
			w, l := EloDelta(winner, loser, 32)
			if w <= 0 || l >= 0 {
				t.Fatalf("EloDelta(%d, %d) = (%d, %d): want positive winner, negative loser", winner, loser, w, l)
			}
			if w != -l {
				t.Fatalf("EloDelta(%d, %d) = (%d, %d): deltas not symmetric", winner, loser, w, l)
			}
		}
	}
}

func TestExpectedSumsToOne(t *testing.T) {
	a, b := Expected(1300, 1100), Expected(1100, 1300)
	if diff := a + b - 1; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("expected scores sum to %f", a+b)
	}
}
