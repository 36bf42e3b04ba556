package pricing

import (
	"math"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

const (
	// DefaultTaxBasisPoints is GST at 18%.
	DefaultTaxBasisPoints = 1800
	// DefaultFeeBasisPoints is the platform fee at 5%.
	DefaultFeeBasisPoints = 500

	basisPointsDenominator = 10000
)

// Calculator computes price breakdowns. It holds no state beyond its rates.
type Calculator struct {
	taxBPS int64
	feeBPS int64
}

type Option func(*Calculator)

// WithTaxBasisPoints overrides the tax rate (1800 = 18%).
func WithTaxBasisPoints(bps int64) Option {
	return func(c *Calculator) {
		if bps >= 0 {
			c.taxBPS = bps
		}
	}
}

// WithFeeBasisPoints overrides the platform fee rate (500 = 5%).
func WithFeeBasisPoints(bps int64) Option {
	return func(c *Calculator) {
		if bps >= 0 {
			c.feeBPS = bps
		}
	}
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		taxBPS: DefaultTaxBasisPoints,
		feeBPS: DefaultFeeBasisPoints,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComputePrice prices a stay. Taxes and fee are each rounded half-up from the
// subtotal independently.
func (c *Calculator) ComputePrice(nightlyRate int64, nights int) (domain.PriceBreakdown, error) {
	if nightlyRate <= 0 || nights <= 0 {
		return domain.PriceBreakdown{}, domain.ErrInvalidInput
	}
	if nightlyRate > math.MaxInt64/int64(nights) {
		return domain.PriceBreakdown{}, domain.ErrInvalidInput
	}
	subtotal := nightlyRate * int64(nights)

	taxes, ok := applyRate(subtotal, c.taxBPS)
	if !ok {
		return domain.PriceBreakdown{}, domain.ErrInvalidInput
	}
	fee, ok := applyRate(subtotal, c.feeBPS)
	if !ok {
		return domain.PriceBreakdown{}, domain.ErrInvalidInput
	}
	if subtotal > math.MaxInt64-taxes-fee {
		return domain.PriceBreakdown{}, domain.ErrInvalidInput
	}

	return domain.PriceBreakdown{
		Subtotal:    subtotal,
		Taxes:       taxes,
		PlatformFee: fee,
		Total:       subtotal + taxes + fee,
	}, nil
}

// applyRate returns round_half_up(amount * bps / 10000) for non-negative inputs.
func applyRate(amount, bps int64) (int64, bool) {
	if bps == 0 {
		return 0, true
	}
	if amount > (math.MaxInt64-basisPointsDenominator/2)/bps {
		return 0, false
	}
	return (amount*bps + basisPointsDenominator/2) / basisPointsDenominator, true
}
