package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestProbability_RoundTrip(t *testing.T) {
	for c := int64(0); c <= 100; c++ {
		p := Probability(c)
		if got := int64(math.Round(p * 100)); got != c {
			t.Fatalf("cents %d -> %v -> %d", c, p, got)
		}
	}
	if Probability(60) != 0.6 {
		t.Fatalf("Probability(60)=%v want 0.6", Probability(60))
	}
}

func TestCents_BestPricesAndDepth(t *testing.T) {
	q := Cents(CentsBook{
		YesBid: 60,
		YesAsk: 62,
		Yes:    []CentLevel{{Price: 55, Size: 10}, {Price: 60, Size: 5}},
		No:     []CentLevel{{Price: 38, Size: 7}, {Price: 30, Size: 3}},
	})
	if !approx(q.BestBid, 0.60) || !approx(q.BestAsk, 0.62) {
		t.Fatalf("best=%v/%v want 0.60/0.62", q.BestBid, q.BestAsk)
	}
	if len(q.Bids) != 2 || !approx(q.Bids[0].Price, 0.60) || !approx(q.Bids[1].Price, 0.55) {
		t.Fatalf("bids=%v want descending 0.60,0.55", q.Bids)
	}
	if len(q.Asks) != 2 || !approx(q.Asks[0].Price, 0.62) || !approx(q.Asks[1].Price, 0.70) {
		t.Fatalf("asks=%v want ascending 0.62,0.70", q.Asks)
	}
	if q.Asks[0].Size != 7 {
		t.Fatalf("ask size=%v want 7", q.Asks[0].Size)
	}
}

func TestCents_NoDepth(t *testing.T) {
	q := Cents(CentsBook{YesBid: 40, YesAsk: 45})
	if q.Bids == nil || q.Asks == nil {
		t.Fatalf("expected non-nil empty slices")
	}
	if len(q.Bids) != 0 || len(q.Asks) != 0 {
		t.Fatalf("expected empty depth, got %v %v", q.Bids, q.Asks)
	}
	if !approx(q.BestBid, 0.40) || !approx(q.BestAsk, 0.45) {
		t.Fatalf("best=%v/%v", q.BestBid, q.BestAsk)
	}
}

func TestDecimal_SortsAndPicksBest(t *testing.T) {
	q := Decimal(
		[]StringLevel{{"0.61", "100"}, {"0.65", "20"}, {"0.63", "5"}},
		[]StringLevel{{"0.70", "1"}, {"0.66", "2"}, {"0.68", "3"}},
	)
	if q.BestBid != 0.65 || q.BestAsk != 0.66 {
		t.Fatalf("best=%v/%v want 0.65/0.66", q.BestBid, q.BestAsk)
	}
	wantBids := []float64{0.65, 0.63, 0.61}
	for i, w := range wantBids {
		if q.Bids[i].Price != w {
			t.Fatalf("bids[%d]=%v want %v", i, q.Bids[i].Price, w)
		}
	}
	wantAsks := []float64{0.66, 0.68, 0.70}
	for i, w := range wantAsks {
		if q.Asks[i].Price != w {
			t.Fatalf("asks[%d]=%v want %v", i, q.Asks[i].Price, w)
		}
	}
	if q.Bids[0].Size != 20 {
		t.Fatalf("bid size=%v want 20", q.Bids[0].Size)
	}
}

func TestDecimal_EmptySides(t *testing.T) {
	q := Decimal(nil, nil)
	if q.BestBid != 0 || q.BestAsk != 0 {
		t.Fatalf("best=%v/%v want 0/0", q.BestBid, q.BestAsk)
	}
	if q.Bids == nil || q.Asks == nil {
		t.Fatalf("expected non-nil empty slices")
	}
}

func TestDecimal_MalformedLevelKept(t *testing.T) {
	q := Decimal(
		[]StringLevel{{"0.50", "10"}, {"abc", "3"}, {"0.52", "x"}},
		nil,
	)
	if len(q.Bids) != 3 {
		t.Fatalf("len(bids)=%d want 3", len(q.Bids))
	}
	want := []domain.PriceLevel{{Price: 0.52, Size: 0}, {Price: 0.50, Size: 10}, {Price: 0, Size: 3}}
	for i, w := range want {
		if q.Bids[i] != w {
			t.Fatalf("bids[%d]=%v want %v", i, q.Bids[i], w)
		}
	}
	if q.BestBid != 0.52 {
		t.Fatalf("best bid=%v want 0.52", q.BestBid)
	}
}

func TestDecimal_StableOnEqualPrices(t *testing.T) {
	q := Decimal([]StringLevel{{"0.5", "1"}, {"0.5", "2"}, {"0.5", "3"}}, nil)
	for i, want := range []float64{1, 2, 3} {
		if q.Bids[i].Size != want {
			t.Fatalf("bids[%d].Size=%v want %v", i, q.Bids[i].Size, want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	if ParseFloat(" 0.25 ") != 0.25 {
		t.Fatalf("trimmed parse failed")
	}
	if ParseFloat("") != 0 || ParseFloat("n/a") != 0 {
		t.Fatalf("malformed input should parse as 0")
	}
}

func TestParseFloat_ExtremeExponent(t *testing.T) {
	done := make(chan float64, 1)
	go func() {
		done <- ParseFloat("1e-400000000") + ParseFloat("1e400000000") + ParseFloat("5E+33")
	}()
	select {
	case v := <-done:
		if v != 0 {
			t.Fatalf("extreme exponents parsed as %v, want 0", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ParseFloat did not return for an extreme exponent")
	}
	if ParseFloat("5e-1") != 0.5 {
		t.Fatalf("small exponent rejected: %v", ParseFloat("5e-1"))
	}
}

func TestDecimal_ExtremeExponentLevelKept(t *testing.T) {
	q := Decimal(nil, []StringLevel{{"1e-400000000", "4"}, {"0.55", "2"}})
	if len(q.Asks) != 2 {
		t.Fatalf("len(asks)=%d want 2", len(q.Asks))
	}
	if q.Asks[0] != (domain.PriceLevel{Price: 0, Size: 4}) || q.BestAsk != 0 {
		t.Fatalf("asks=%v best=%v", q.Asks, q.BestAsk)
	}
}
