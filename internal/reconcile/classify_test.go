package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassifyBoundaryExactness(t *testing.T) {
	market := dec("100")
	cases := []struct {
		user string
		want Status
	}{
		{"105", StatusOptimal},       // +5.0% exactly
		{"95", StatusOptimal},        // -5.0% exactly
		{"105.0001", StatusVolatile}, // just past the optimal band, not >15
		{"94.9999", StatusVolatile},
		{"115", StatusVolatile}, // +15.0% exactly: too_high is strict >
		{"115.0001", StatusTooHigh},
		{"85", StatusVolatile}, // -15.0% exactly: too_low is strict <
		{"84.9999", StatusTooLow},
		{"100", StatusOptimal},
		{"0", StatusTooLow}, // -100%
	}

	for _, tc := range cases {
		got := Classify(dec(tc.user), market)
		if got.Status != tc.want {
			t.Fatalf("user=%s market=100: got %s (pct %s), want %s",
				tc.user, got.Status, got.Percentage.String(), tc.want)
		}
	}
}

func TestClassifyScenarios(t *testing.T) {
	market := dec("280.50")

	// 350 vs 280.50: +24.78% -> too_high
	if v := Classify(dec("350"), market); v.Status != StatusTooHigh {
		t.Fatalf("350 vs 280.50: got %s (pct %s)", v.Status, v.Percentage.String())
	}
	// 290 vs 280.50: +3.39% -> optimal
	if v := Classify(dec("290"), market); v.Status != StatusOptimal {
		t.Fatalf("290 vs 280.50: got %s (pct %s)", v.Status, v.Percentage.String())
	}
	// 300 vs 280.50: +6.95% -> volatile
	if v := Classify(dec("300"), market); v.Status != StatusVolatile {
		t.Fatalf("300 vs 280.50: got %s (pct %s)", v.Status, v.Percentage.String())
	}

	v := Classify(dec("350"), market)
	if v.Difference.String() != "69.5" {
		t.Fatalf("difference: got %s, want 69.5", v.Difference.String())
	}
}

func TestClassifyDeterministic(t *testing.T) {
	// Verdict carries decimals, so struct equality would compare big.Int
	// pointers; compare field by field with decimal.Equal instead.
	first := Classify(dec("123.45"), dec("99.87"))
	for i := 0; i < 100; i++ {
		got := Classify(dec("123.45"), dec("99.87"))
		if got.Status != first.Status || got.Recommendation != first.Recommendation {
			t.Fatalf("call %d diverged: %#v vs %#v", i, got, first)
		}
		if !got.Difference.Equal(first.Difference) || !got.Percentage.Equal(first.Percentage) {
			t.Fatalf("call %d diverged on values: %s/%s vs %s/%s",
				i, got.Difference.String(), got.Percentage.String(),
				first.Difference.String(), first.Percentage.String())
		}
	}
}

func TestClassifyPartition(t *testing.T) {
	// Every pair lands in exactly one bucket with the matching recommendation.
	market := dec("250")
	wantRec := map[Status]string{
		StatusOptimal:  recommendOptimal,
		StatusTooHigh:  recommendTooHigh,
		StatusTooLow:   recommendTooLow,
		StatusVolatile: recommendVolatile,
	}

	user := decimal.Zero
	step := dec("7.31")
	for i := 0; i < 120; i++ {
		v := Classify(user, market)
		switch v.Status {
		case StatusOptimal, StatusTooHigh, StatusTooLow, StatusVolatile:
		default:
			t.Fatalf("user=%s: unknown status %q", user.String(), v.Status)
		}
		if v.Recommendation != wantRec[v.Status] {
			t.Fatalf("user=%s: recommendation %q does not match status %s", user.String(), v.Recommendation, v.Status)
		}
		user = user.Add(step)
	}
}

func TestClassifyPercentageFormula(t *testing.T) {
	v := Classify(dec("120"), dec("100"))
	if !v.Percentage.Equal(dec("20")) {
		t.Fatalf("percentage: got %s, want 20", v.Percentage.String())
	}
	v = Classify(dec("80"), dec("100"))
	if !v.Percentage.Equal(dec("-20")) {
		t.Fatalf("percentage: got %s, want -20", v.Percentage.String())
	}
}
