package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/osteria-app/osteria-backend/internal/finalize"
)

type stubFinalizeService struct {
	orderResult *finalize.Result
	orderErr    error
	giftResult  *finalize.Result
	giftErr     error
	lastToken   string
}

func (s *stubFinalizeService) FinalizeOrder(_ context.Context, providerOrderID string) (*finalize.Result, error) {
	s.lastToken = providerOrderID
	return s.orderResult, s.orderErr
}

func (s *stubFinalizeService) FinalizeGift(_ context.Context, providerOrderID string) (*finalize.Result, error) {
	s.lastToken = providerOrderID
	return s.giftResult, s.giftErr
}

func getPath(handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func TestPayPalReturnRedirectsToOrderPage(t *testing.T) {
	orderID := uuid.New()
	svc := &stubFinalizeService{
		orderResult: &finalize.Result{Outcome: finalize.OutcomeFinalized, OrderID: orderID},
	}
	handler := PayPalReturn(svc, "http://localhost:5173/", testLogger())

	resp := getPath(handler, "/api/paypal/return?token=PAY-1")
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", resp.Code)
	}
	want := "http://localhost:5173/thank-you/" + orderID.String()
	if got := resp.Header().Get("Location"); got != want {
		t.Fatalf("expected %s got %s", want, got)
	}
	if svc.lastToken != "PAY-1" {
		t.Fatalf("expected token PAY-1 got %q", svc.lastToken)
	}
}

func TestPayPalReturnWithoutTokenFallsBack(t *testing.T) {
	svc := &stubFinalizeService{}
	handler := PayPalReturn(svc, "http://localhost:5173", testLogger())

	resp := getPath(handler, "/api/paypal/return")
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "http://localhost:5173/thank-you" {
		t.Fatalf("expected plain thank-you got %s", got)
	}
	if svc.lastToken != "" {
		t.Fatal("finalizer must not run without a token")
	}
}

func TestPayPalReturnHidesFinalizeFailure(t *testing.T) {
	svc := &stubFinalizeService{orderErr: errors.New("capture timeout")}
	handler := PayPalReturn(svc, "http://localhost:5173", testLogger())

	resp := getPath(handler, "/api/paypal/return?token=PAY-1")
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "http://localhost:5173/thank-you" {
		t.Fatalf("payer must land on plain thank-you, got %s", got)
	}
}

func TestPayPalReturnAlreadyProcessedFallsBack(t *testing.T) {
	svc := &stubFinalizeService{
		orderResult: &finalize.Result{Outcome: finalize.OutcomeAlreadyProcessed},
	}
	handler := PayPalReturn(svc, "http://localhost:5173", testLogger())

	resp := getPath(handler, "/api/paypal/return?token=PAY-1")
	if got := resp.Header().Get("Location"); got != "http://localhost:5173/thank-you" {
		t.Fatalf("expected plain thank-you got %s", got)
	}
}

func TestPayPalGiftReturnCarriesCode(t *testing.T) {
	svc := &stubFinalizeService{
		giftResult: &finalize.Result{Outcome: finalize.OutcomeFinalized, GiftCode: "GC-NEW42", GiftValueCents: 2805},
	}
	handler := PayPalGiftReturn(svc, "http://localhost:5173", testLogger())

	resp := getPath(handler, "/api/paypal/gift/return?token=PAY-2")
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "http://localhost:5173/thank-you?code=GC-NEW42" {
		t.Fatalf("expected code in redirect got %s", got)
	}
}

func TestPayPalGiftReturnNotSettledFallsBack(t *testing.T) {
	svc := &stubFinalizeService{
		giftResult: &finalize.Result{Outcome: finalize.OutcomeNotSettled},
	}
	handler := PayPalGiftReturn(svc, "http://localhost:5173", testLogger())

	resp := getPath(handler, "/api/paypal/gift/return?token=PAY-2")
	if got := resp.Header().Get("Location"); got != "http://localhost:5173/thank-you" {
		t.Fatalf("expected plain thank-you got %s", got)
	}
}

func TestPayPalCancelAcknowledges(t *testing.T) {
	handler := PayPalCancel()

	resp := getPath(handler, "/api/paypal/cancel")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
