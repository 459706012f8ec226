package strategy

import "testing"

func TestComputePnLWin(t *testing.T) {
	got := ComputePnL(true, 0.60, 60)
	want := 60/0.60 - 60
	if got != want {
		t.Fatalf("ComputePnL(win) = %v, want %v", got, want)
	}
}

func TestComputePnLLoss(t *testing.T) {
	got := ComputePnL(false, 0.60, 60)
	if got != -60 {
		t.Fatalf("ComputePnL(loss) = %v, want -60", got)
	}
}

func TestPortfolioWinRate(t *testing.T) {
	tt := []struct {
		name string
		p    Portfolio
		want float64
	}{
		{"no trades", Portfolio{}, 0},
		{"all wins", Portfolio{TotalTrades: 4, WinningTrades: 4}, 1},
		{"half wins", Portfolio{TotalTrades: 4, WinningTrades: 2}, 0.5},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.WinRate(); got != tc.want {
				t.Fatalf("WinRate() = %v, want %v", got, tc.want)
			}
		})
	}
}
