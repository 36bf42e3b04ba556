package pricing

import (
	"math"
	"testing"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

func TestCalculator_ComputePrice(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()

	tests := []struct {
		name   string
		rate   int64
		nights int
		want   domain.PriceBreakdown
		err    error
	}{
		{
			name:   "three nights at 1500",
			rate:   1500,
			nights: 3,
			want:   domain.PriceBreakdown{Subtotal: 4500, Taxes: 810, PlatformFee: 225, Total: 5535},
		},
		{
			// 0.18 * 25 = 4.5 and 0.05 * 25 = 1.25
			name:   "half rounds up, fee rounds down",
			rate:   25,
			nights: 1,
			want:   domain.PriceBreakdown{Subtotal: 25, Taxes: 5, PlatformFee: 1, Total: 31},
		},
		{
			// 0.05 * 10 = 0.5
			name:   "fee half rounds up",
			rate:   10,
			nights: 1,
			want:   domain.PriceBreakdown{Subtotal: 10, Taxes: 2, PlatformFee: 1, Total: 13},
		},
		{
			name:   "single rupee",
			rate:   1,
			nights: 1,
			want:   domain.PriceBreakdown{Subtotal: 1, Taxes: 0, PlatformFee: 0, Total: 1},
		},
		{name: "zero rate", rate: 0, nights: 3, err: domain.ErrInvalidInput},
		{name: "negative rate", rate: -100, nights: 3, err: domain.ErrInvalidInput},
		{name: "zero nights", rate: 1500, nights: 0, err: domain.ErrInvalidInput},
		{name: "overflow", rate: math.MaxInt64 / 2, nights: 3, err: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := calc.ComputePrice(tt.rate, tt.nights)
			if err != tt.err {
				t.Fatalf("expected err %v, got %v", tt.err, err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCalculator_TotalIsSumAndDeterministic(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()
	for rate := int64(1); rate <= 5000; rate += 37 {
		for nights := 1; nights <= 30; nights++ {
			first, err := calc.ComputePrice(rate, nights)
			if err != nil {
				t.Fatalf("rate=%d nights=%d: unexpected error %v", rate, nights, err)
			}
			if first.Total != first.Subtotal+first.Taxes+first.PlatformFee {
				t.Fatalf("rate=%d nights=%d: total %d != parts %+v", rate, nights, first.Total, first)
			}
			if first.Subtotal != rate*int64(nights) {
				t.Fatalf("rate=%d nights=%d: subtotal %d", rate, nights, first.Subtotal)
			}
			again, _ := calc.ComputePrice(rate, nights)
			if again != first {
				t.Fatalf("rate=%d nights=%d: non-deterministic %+v vs %+v", rate, nights, first, again)
			}
		}
	}
}

func TestCalculator_CustomRates(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(WithTaxBasisPoints(1200), WithFeeBasisPoints(0))
	got, err := calc.ComputePrice(1000, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := domain.PriceBreakdown{Subtotal: 2000, Taxes: 240, PlatformFee: 0, Total: 2240}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
