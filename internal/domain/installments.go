package domain

import "math"

// annualInterestRate is the fixed nominal yearly rate used for installment
// quotes.
const annualInterestRate = 0.10

// installment counts offered to applicants.
const (
	minInstallments = 2
	maxInstallments = 12
)

// InstallmentSchedule returns the monthly payment size for every supported
// installment count (2 through 12) for the given present value, using the
// standard amortizing-annuity formula with the annual rate converted to an
// effective monthly rate. Results are rounded to two decimals.
//
// A zero or negative presentValue returns an empty map rather than an error;
// callers treat that as "nothing to quote". The function is pure and safe
// for concurrent use.
func InstallmentSchedule(presentValue float64) map[int]float64 {
	schedule := map[int]float64{}
	if presentValue <= 0 {
		return schedule
	}

	monthlyRate := math.Pow(1+annualInterestRate, 1.0/12) - 1

	for n := minInstallments; n <= maxInstallments; n++ {
		compounded := math.Pow(1+monthlyRate, float64(n))
		payment := presentValue * (compounded * monthlyRate) / (compounded - 1)
		schedule[n] = math.Round(payment*100) / 100
	}
	return schedule
}
