package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loanapp/loan-service/internal/app"
)

func paymentSizeHandler() *ApplicationHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewApplicationService(nil, nil, false, logger)
	return NewApplicationHandler(service)
}

func TestPaymentSize_ReturnsSchedule(t *testing.T) {
	handler := paymentSizeHandler()

	req := httptest.NewRequest(http.MethodGet, "/application/payment_size?requestedLoanAmount=1000", nil)
	rr := httptest.NewRecorder()
	handler.PaymentSize(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var schedule map[string]float64
	if err := json.Unmarshal(rr.Body.Bytes(), &schedule); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(schedule) != 11 {
		t.Fatalf("expected 11 entries, got %d", len(schedule))
	}
	if schedule["2"] <= 500 || schedule["12"] >= 100 {
		t.Fatalf("unexpected payment bounds: 2=%f 12=%f", schedule["2"], schedule["12"])
	}
}

func TestPaymentSize_RejectsBadInput(t *testing.T) {
	handler := paymentSizeHandler()

	for _, query := range []string{
		"",
		"requestedLoanAmount=abc",
		"requestedLoanAmount=0",
		"requestedLoanAmount=-100",
		"requestedLoanAmount=NaN",
		"requestedLoanAmount=Inf",
		"requestedLoanAmount=-Inf",
	} {
		req := httptest.NewRequest(http.MethodGet, "/application/payment_size?"+query, nil)
		rr := httptest.NewRecorder()
		handler.PaymentSize(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", query, rr.Code)
		}
	}
}
