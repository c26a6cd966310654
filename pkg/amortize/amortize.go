// Package amortize implements the pure installment arithmetic for the loan
// ledger: period derivation, minimum payments, and late-fee compounding.
// Amounts are denominated in the smallest currency unit and expressed as big
// integers; all division is truncating integer division so results are
// deterministic across platforms.
package amortize

import "math/big"

var (
	// InterestDenominator scales the stored interest rate: a loan carrying
	// interest = r * 1e18 owes r basis points over its full term.
	InterestDenominator = big.NewInt(1_000_000_000_000_000_000)
	// BasisPointsDenominator converts basis points to a plain ratio.
	BasisPointsDenominator = big.NewInt(10_000)
	// LateFeeBps is the flat penalty applied per missed installment period.
	LateFeeBps = big.NewInt(50)

	// installmentPrecision keeps the per-installment rate from truncating to
	// zero when the term rate does not divide evenly by the installment count.
	installmentPrecision = big.NewInt(1_000_000)
)

// BelowRateFloor reports whether the scaled interest rate is under the
// minimum representable rate of 0.01% (interest / 1e18 < 1).
func BelowRateFloor(interest *big.Int) bool {
	if interest == nil {
		return true
	}
	rate := new(big.Int).Quo(interest, InterestDenominator)
	return rate.Sign() <= 0
}

// TotalOwed returns principal plus interest applied once over the full term:
// principal + principal * (interest / 1e18) / 10000. Used for single-payment
// loans.
func TotalOwed(principal, interest *big.Int) *big.Int {
	owed := new(big.Int).Mul(principal, interest)
	owed.Quo(owed, InterestDenominator)
	owed.Quo(owed, BasisPointsDenominator)
	return owed.Add(owed, principal)
}

// CurrentPeriod derives the 1-based installment period at nowUnix. Elapsed
// time before the start date counts as zero.
func CurrentPeriod(startUnix, durationSecs int64, numInstallments uint64, nowUnix int64) uint64 {
	if durationSecs <= 0 || numInstallments == 0 {
		return 0
	}
	elapsed := nowUnix - startUnix
	if elapsed < 0 {
		elapsed = 0
	}
	idx := new(big.Int).Mul(big.NewInt(elapsed), new(big.Int).SetUint64(numInstallments))
	idx.Quo(idx, big.NewInt(durationSecs))
	return idx.Uint64() + 1
}

// MissedPayments returns how many installment periods elapsed without a
// payment: period - (installmentsPaid + 1), clamped at zero. A caller that is
// ahead of schedule has missed nothing.
func MissedPayments(period, installmentsPaid uint64) uint64 {
	if period <= installmentsPaid+1 {
		return 0
	}
	return period - installmentsPaid - 1
}

// AmountsDue computes the minimum payment owed at the given installment
// period. With no missed periods the minimum is one installment of interest
// on the outstanding balance. For each missed period the unpaid interest
// folds into a running balance and a 50 bps late fee accrues on that updated
// balance, so penalties compound per period skipped.
//
// Returns the minimum interest due, the accrued late fees, and the missed
// period count. Principal is never part of the minimum.
func AmountsDue(balance, interest *big.Int, numInstallments, period, installmentsPaid uint64) (minimumDue, lateFees *big.Int, missed uint64) {
	perInstallment := interestPerInstallment(interest, numInstallments)
	missed = MissedPayments(period, installmentsPaid)

	if missed == 0 {
		return installmentInterest(balance, perInstallment), big.NewInt(0), 0
	}

	minimumDue = big.NewInt(0)
	lateFees = big.NewInt(0)
	current := new(big.Int).Set(balance)
	for i := uint64(0); i < missed; i++ {
		due := installmentInterest(current, perInstallment)
		minimumDue.Add(minimumDue, due)
		current.Add(current, due)

		fee := new(big.Int).Mul(current, LateFeeBps)
		fee.Quo(fee, BasisPointsDenominator)
		lateFees.Add(lateFees, fee)
	}
	return minimumDue, lateFees, missed
}

// interestPerInstallment scales the term rate down to a single installment:
// (interest / 1e18) * 1e6 / numInstallments.
func interestPerInstallment(interest *big.Int, numInstallments uint64) *big.Int {
	per := new(big.Int).Quo(interest, InterestDenominator)
	per.Mul(per, installmentPrecision)
	return per.Quo(per, new(big.Int).SetUint64(numInstallments))
}

func installmentInterest(balance, perInstallment *big.Int) *big.Int {
	due := new(big.Int).Mul(balance, perInstallment)
	due.Quo(due, installmentPrecision)
	return due.Quo(due, BasisPointsDenominator)
}
