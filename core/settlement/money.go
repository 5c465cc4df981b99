package settlement

import "math"

// Monetary amounts are int64 minor units (cents); rates are fixed-point basis
// points. Deductions round down so the remainder always stays with the
// originating coach and the parts of an earnings record sum exactly to the
// gross.

const bpsDenominator = 10000

// applyBps returns amount * bps / 10000, rounded down. amount and bps must be
// non-negative; callers guard that.
func applyBps(amount, bps int64) int64 {
	return amount * bps / bpsDenominator
}

// bpsOverflows reports whether applyBps on the amount would overflow int64.
func bpsOverflows(amount int64) bool {
	return amount > math.MaxInt64/bpsDenominator
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
