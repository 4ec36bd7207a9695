package settlement

import "testing"

func TestFeeCentsTruncates(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		percent int64
		want    int64
	}{
		{"even split", 1000, 20, 200},
		{"truncates fraction", 999, 20, 199},
		{"one cent", 1, 20, 0},
		{"zero amount", 0, 20, 0},
		{"negative amount", -500, 20, 0},
		{"zero percent", 1000, 0, 0},
		{"full percent", 1000, 100, 1000},
		{"percent clamped high", 1000, 150, 1000},
		{"percent clamped low", 1000, -5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FeeCents(tc.amount, tc.percent); got != tc.want {
				t.Fatalf("FeeCents(%d, %d) = %d, want %d", tc.amount, tc.percent, got, tc.want)
			}
		})
	}
}

func TestSplitConserves(t *testing.T) {
	for amount := int64(0); amount <= 2500; amount += 7 {
		for percent := int64(0); percent <= 100; percent += 5 {
			fee, seller := Split(amount, percent)
			if fee+seller != amount {
				t.Fatalf("Split(%d, %d): fee %d + seller %d != amount", amount, percent, fee, seller)
			}
			if fee < 0 || (amount > 0 && seller < 0) {
				t.Fatalf("Split(%d, %d): negative part fee=%d seller=%d", amount, percent, fee, seller)
			}
		}
	}
}
