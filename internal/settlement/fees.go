package settlement

// FeeCents computes the platform fee for a sale amount using integer
// truncation. Percent is clamped to [0, 100].
func FeeCents(amountCents, feePercent int64) int64 {
	if amountCents <= 0 {
		return 0
	}
	if feePercent < 0 {
		feePercent = 0
	}
	if feePercent > 100 {
		feePercent = 100
	}
	return amountCents * feePercent / 100
}

// Split returns the platform fee and the seller remainder. The two parts
// always sum to the original amount.
func Split(amountCents, feePercent int64) (fee int64, seller int64) {
	fee = FeeCents(amountCents, feePercent)
	return fee, amountCents - fee
}
