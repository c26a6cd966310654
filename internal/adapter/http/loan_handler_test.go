package http

import (
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"testing"

	"loanledger-backend/internal/usecase/ledger"

	"github.com/labstack/echo/v4"
)

func createReqBody() map[string]any {
	return map[string]any{
		"duration_secs":    345_600,
		"principal":        "100000000000000000000",
		"interest":         "1000000000000000000000",
		"collateral_id":    "nft-1",
		"currency_id":      "usdx",
		"num_installments": 4,
	}
}

func TestCreateLoan_Success(t *testing.T) {
	e := newEchoWithValidator()
	core, _, _ := newHarness()
	h := NewLoanHandler(core)

	c, rec := request(e, stdhttp.MethodPost, "/loans", origPrincipal, mustJSON(createReqBody()))
	if err := h.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan error: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	var dto ledger.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.LoanID == 0 || dto.State != "created" || dto.Balance != "100000000000000000000" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
}

func TestCreateLoan_MissingPrincipalHeader(t *testing.T) {
	e := newEchoWithValidator()
	core, _, _ := newHarness()
	h := NewLoanHandler(core)

	c, rec := request(e, stdhttp.MethodPost, "/loans", "", mustJSON(createReqBody()))
	if err := h.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	// Uppercase or short principals are equally rejected.
	c, rec = request(e, stdhttp.MethodPost, "/loans", strings.ToUpper(origPrincipal), mustJSON(createReqBody()))
	_ = h.CreateLoan(c)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("uppercase principal status = %d, want 400", rec.Code)
	}
}

func TestCreateLoan_ValidationFailures(t *testing.T) {
	e := newEchoWithValidator()
	core, _, _ := newHarness()
	h := NewLoanHandler(core)

	cases := []struct {
		name   string
		mutate func(m map[string]any)
		field  string
	}{
		{"odd installments", func(m map[string]any) { m["num_installments"] = 3 }, "NumInstallments"},
		{"decimal principal", func(m map[string]any) { m["principal"] = "1.5" }, "Principal"},
		{"negative amount", func(m map[string]any) { m["interest"] = "-10" }, "Interest"},
		{"zero duration", func(m map[string]any) { m["duration_secs"] = 0 }, "DurationSecs"},
		{"missing collateral", func(m map[string]any) { m["collateral_id"] = "" }, "CollateralID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := createReqBody()
			tc.mutate(body)
			c, rec := request(e, stdhttp.MethodPost, "/loans", origPrincipal, mustJSON(body))
			if err := h.CreateLoan(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != stdhttp.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422, body=%s", rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			found := false
			for _, d := range resp.Details {
				if d.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("no detail for field %s: %+v", tc.field, resp.Details)
			}
		})
	}
}

func TestCreateLoan_Unauthorized(t *testing.T) {
	e := newEchoWithValidator()
	core, _, _ := newHarness()
	h := NewLoanHandler(core)

	c, rec := request(e, stdhttp.MethodPost, "/loans", payerPrincipal, mustJSON(createReqBody()))
	if err := h.CreateLoan(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func createLoanViaHandler(t *testing.T, e *echo.Echo, h *LoanHandler) uint64 {
	t.Helper()
	c, rec := request(e, stdhttp.MethodPost, "/loans", origPrincipal, mustJSON(createReqBody()))
	if err := h.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var dto ledger.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	return dto.LoanID
}

func TestStartLoan_SuccessAndErrorMapping(t *testing.T) {
	e := newEchoWithValidator()
	core, _, store := newHarness()
	h := NewLoanHandler(core)
	loanID := createLoanViaHandler(t, e, h)

	body := map[string]any{"lender": lenderPrincipal, "borrower": borrowerPrincipal}

	c, rec := request(e, stdhttp.MethodPost, "/loans/1/start", origPrincipal, mustJSON(body))
	c.SetParamNames("loan_id")
	c.SetParamValues("1")
	if err := h.StartLoan(c); err != nil {
		t.Fatalf("StartLoan error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var dto ledger.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.LoanID != loanID || dto.State != "active" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if store.CollateralOwner("nft-1") != ledger.CustodyAccountID {
		t.Fatalf("collateral not in custody")
	}

	// Restart of an active loan maps to 409.
	c, rec = request(e, stdhttp.MethodPost, "/loans/1/start", origPrincipal, mustJSON(body))
	c.SetParamNames("loan_id")
	c.SetParamValues("1")
	_ = h.StartLoan(c)
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("restart status = %d, want 409", rec.Code)
	}

	// Unknown loan maps to 404.
	c, rec = request(e, stdhttp.MethodPost, "/loans/99/start", origPrincipal, mustJSON(body))
	c.SetParamNames("loan_id")
	c.SetParamValues("99")
	_ = h.StartLoan(c)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("missing loan status = %d, want 404", rec.Code)
	}
}

func TestStartLoan_InsufficientFunds(t *testing.T) {
	e := newEchoWithValidator()
	core, _, store := newHarness()
	h := NewLoanHandler(core)
	createLoanViaHandler(t, e, h)

	// Drain the originator's funding account.
	store.SeedBalance("usdx", origPrincipal, "0")

	body := map[string]any{"lender": lenderPrincipal, "borrower": borrowerPrincipal}
	c, rec := request(e, stdhttp.MethodPost, "/loans/1/start", origPrincipal, mustJSON(body))
	c.SetParamNames("loan_id")
	c.SetParamValues("1")
	_ = h.StartLoan(c)
	if rec.Code != stdhttp.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402, body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetLoan(t *testing.T) {
	e := newEchoWithValidator()
	core, _, _ := newHarness()
	h := NewLoanHandler(core)
	createLoanViaHandler(t, e, h)

	c, rec := request(e, stdhttp.MethodGet, "/loans/1", "", nil)
	c.SetParamNames("loan_id")
	c.SetParamValues("1")
	if err := h.GetLoan(c); err != nil {
		t.Fatalf("GetLoan error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	c, rec = request(e, stdhttp.MethodGet, "/loans/99", "", nil)
	c.SetParamNames("loan_id")
	c.SetParamValues("99")
	_ = h.GetLoan(c)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("missing loan status = %d, want 404", rec.Code)
	}

	c, rec = request(e, stdhttp.MethodGet, "/loans/abc", "", nil)
	c.SetParamNames("loan_id")
	c.SetParamValues("abc")
	_ = h.GetLoan(c)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("bad path status = %d, want 400", rec.Code)
	}
}
