package domain

import (
	"math"
	"testing"
)

func TestInstallmentSchedule_CoversCountsTwoThroughTwelve(t *testing.T) {
	schedule := InstallmentSchedule(1000)

	if len(schedule) != 11 {
		t.Fatalf("expected 11 entries, got %d", len(schedule))
	}
	for n := 2; n <= 12; n++ {
		payment, ok := schedule[n]
		if !ok {
			t.Fatalf("missing entry for %d installments", n)
		}
		if payment <= 0 {
			t.Fatalf("payment for %d installments must be positive, got %f", n, payment)
		}
	}
}

func TestInstallmentSchedule_DegenerateInputReturnsEmptyMap(t *testing.T) {
	for _, amount := range []float64{0, -1, -1000} {
		schedule := InstallmentSchedule(amount)
		if len(schedule) != 0 {
			t.Fatalf("expected empty schedule for amount %f, got %v", amount, schedule)
		}
	}
}

func TestInstallmentSchedule_PaymentBounds(t *testing.T) {
	schedule := InstallmentSchedule(1000)

	if schedule[2] <= 500 {
		t.Fatalf("two installments on 1000 must each exceed 500, got %f", schedule[2])
	}
	if schedule[12] >= 100 {
		t.Fatalf("twelve installments on 1000 must each stay under 100, got %f", schedule[12])
	}
}

func TestInstallmentSchedule_PaymentsDecreaseWithMoreInstallments(t *testing.T) {
	schedule := InstallmentSchedule(5000)

	for n := 3; n <= 12; n++ {
		if schedule[n] >= schedule[n-1] {
			t.Fatalf("payment for %d installments (%f) should be below payment for %d (%f)",
				n, schedule[n], n-1, schedule[n-1])
		}
	}
}

func TestInstallmentSchedule_RoundsToTwoDecimals(t *testing.T) {
	schedule := InstallmentSchedule(1234.56)

	for n, payment := range schedule {
		scaled := payment * 100
		if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
			t.Fatalf("payment for %d installments not rounded to 2 decimals: %v", n, payment)
		}
	}
}
