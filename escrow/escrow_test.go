package escrow

import (
	"testing"
	"time"
)

func TestSplit(t *testing.T) {
	commission, sellerAmount := Split(100.00)

	if commission != 10.00 {
		t.Errorf("Expected commission 10.00, got %v", commission)
	}
	if sellerAmount != 90.00 {
		t.Errorf("Expected seller amount 90.00, got %v", sellerAmount)
	}
}

func TestSplit_SumsToTotal(t *testing.T) {
	totals := []float64{100.00, 0.01, 19.99, 1234.56, 0.03, 99999.99}

	for _, total := range totals {
		commission, sellerAmount := Split(total)
		if commission+sellerAmount != total {
			t.Errorf("Split(%v): commission %v + seller %v != total", total, commission, sellerAmount)
		}
	}
}

func TestReleaseDate(t *testing.T) {
	paidAt := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	want := time.Date(2025, 3, 17, 14, 30, 0, 0, time.UTC)

	if got := ReleaseDate(paidAt); !got.Equal(want) {
		t.Errorf("Expected release date %v, got %v", want, got)
	}
}

func TestReleaseDate_SevenDays(t *testing.T) {
	paidAt := time.Now()
	if got := ReleaseDate(paidAt).Sub(paidAt); got != 7*24*time.Hour {
		t.Errorf("Expected a 7-day hold, got %v", got)
	}
}
