package strategy

import "testing"

func TestRSIInsufficientHistory(t *testing.T) {
	closes := []float64{100, 101, 102}
	if got := RSI(closes); got != 50 {
		t.Fatalf("RSI with short history = %v, want 50", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if got := RSI(closes); got != 100 {
		t.Fatalf("RSI with monotonic gains = %v, want 100", got)
	}
}

func TestSMA(t *testing.T) {
	tt := []struct {
		name   string
		closes []float64
		period int
		want   float64
	}{
		{"exact window", []float64{1, 2, 3, 4, 5}, 5, 3},
		{"trailing window", []float64{1, 2, 3, 4, 5, 6}, 3, 5},
		{"not enough data", []float64{1, 2}, 5, 0},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := SMA(tc.closes, tc.period); got != tc.want {
				t.Fatalf("SMA() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTrendState(t *testing.T) {
	flatAt100 := make([]float64, 20)
	for i := range flatAt100 {
		flatAt100[i] = 100
	}

	up := append([]float64{}, flatAt100[:19]...)
	up = append(up, 110)

	down := append([]float64{}, flatAt100[:19]...)
	down = append(down, 90)

	tt := []struct {
		name   string
		closes []float64
		want   Trend
	}{
		{"flat series", flatAt100, TrendFlat},
		{"sharp rise breaks the buffer", up, TrendUp},
		{"sharp drop breaks the buffer", down, TrendDown},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := TrendState(tc.closes); got != tc.want {
				t.Fatalf("TrendState() = %v, want %v", got, tc.want)
			}
		})
	}
}
