package http

import (
	"encoding/json"
	stdhttp "net/http"
	"testing"
)

func TestPauseUnpause_Handler(t *testing.T) {
	e := newEchoWithValidator()
	core, _, store := newHarness()
	h := NewAdminHandler(core)

	c, rec := request(e, stdhttp.MethodPost, "/admin/pause", adminPrincipal, nil)
	if err := h.Pause(c); err != nil {
		t.Fatalf("Pause error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	s, _ := store.Repos().Access.GetSettings(c.Request().Context())
	if !s.Paused {
		t.Fatal("settings not paused")
	}

	c, rec = request(e, stdhttp.MethodDelete, "/admin/pause", adminPrincipal, nil)
	if err := h.Unpause(c); err != nil {
		t.Fatalf("Unpause error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	s, _ = store.Repos().Access.GetSettings(c.Request().Context())
	if s.Paused {
		t.Fatal("settings still paused")
	}

	// Non-admin maps to 403.
	c, rec = request(e, stdhttp.MethodPost, "/admin/pause", payerPrincipal, nil)
	_ = h.Pause(c)
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}
}

func TestSetOriginationFee_Handler(t *testing.T) {
	e := newEchoWithValidator()
	core, _, store := newHarness()
	h := NewAdminHandler(core)

	c, rec := request(e, stdhttp.MethodPut, "/admin/fee", adminPrincipal, mustJSON(map[string]any{"bps": 250}))
	if err := h.SetOriginationFee(c); err != nil {
		t.Fatalf("SetOriginationFee error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	s, _ := store.Repos().Access.GetSettings(c.Request().Context())
	if s.OriginationFeeBps != 250 {
		t.Fatalf("fee bps = %d, want 250", s.OriginationFeeBps)
	}

	// Above 10000 bps fails validation before reaching the usecase.
	c, rec = request(e, stdhttp.MethodPut, "/admin/fee", adminPrincipal, mustJSON(map[string]any{"bps": 10_001}))
	_ = h.SetOriginationFee(c)
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("oversized fee status = %d, want 422", rec.Code)
	}
}

func TestGrantRevoke_Handler(t *testing.T) {
	e := newEchoWithValidator()
	core, _, store := newHarness()
	h := NewAdminHandler(core)

	body := map[string]any{"capability": "originator", "principal_id": lenderPrincipal}
	c, rec := request(e, stdhttp.MethodPost, "/admin/grants", adminPrincipal, mustJSON(body))
	if err := h.Grant(c); err != nil {
		t.Fatalf("Grant error: %v", err)
	}
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("status = %d, want 204, body=%s", rec.Code, rec.Body.String())
	}
	ok, _ := store.Repos().Access.HasCapability(c.Request().Context(), "originator", lenderPrincipal)
	if !ok {
		t.Fatal("grant not persisted")
	}

	// Unknown capability name fails the oneof validation.
	c, rec = request(e, stdhttp.MethodPost, "/admin/grants", adminPrincipal,
		mustJSON(map[string]any{"capability": "superuser", "principal_id": lenderPrincipal}))
	_ = h.Grant(c)
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("bad capability status = %d, want 422", rec.Code)
	}

	c, rec = request(e, stdhttp.MethodDelete, "/admin/grants", adminPrincipal, mustJSON(body))
	if err := h.Revoke(c); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	ok, _ = store.Repos().Access.HasCapability(c.Request().Context(), "originator", lenderPrincipal)
	if ok {
		t.Fatal("grant survived revoke")
	}
}

func TestWithdrawFees_Handler(t *testing.T) {
	e := newEchoWithValidator()
	core, _, store := newHarness()
	h := NewAdminHandler(core)

	store.SeedGrant("fee_claimer", adminPrincipal)
	store.SeedBalance("usdx", "loancore_fees", "2500000000000000000")

	body := map[string]any{"currency_id": "usdx", "to": adminPrincipal}
	c, rec := request(e, stdhttp.MethodPost, "/admin/fees/withdraw", adminPrincipal, mustJSON(body))
	if err := h.WithdrawFees(c); err != nil {
		t.Fatalf("WithdrawFees error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp["withdrawn"] != "2500000000000000000" {
		t.Fatalf("withdrawn = %s", resp["withdrawn"])
	}
}

func TestRegisterCollateralAndCredit_Handler(t *testing.T) {
	e := newEchoWithValidator()
	core, _, store := newHarness()
	h := NewAdminHandler(core)

	c, rec := request(e, stdhttp.MethodPost, "/admin/collateral", adminPrincipal,
		mustJSON(map[string]any{"asset_id": "nft-2", "owner_id": borrowerPrincipal}))
	if err := h.RegisterCollateral(c); err != nil {
		t.Fatalf("RegisterCollateral error: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	if store.CollateralOwner("nft-2") != borrowerPrincipal {
		t.Fatal("collateral not registered")
	}

	c, rec = request(e, stdhttp.MethodPost, "/admin/currency/credit", adminPrincipal,
		mustJSON(map[string]any{"currency_id": "usdx", "account_id": borrowerPrincipal, "amount": "1000"}))
	if err := h.CreditAccount(c); err != nil {
		t.Fatalf("CreditAccount error: %v", err)
	}
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("status = %d, want 204, body=%s", rec.Code, rec.Body.String())
	}
	if b := store.Balance("usdx", borrowerPrincipal); b != "1000" {
		t.Fatalf("balance = %s, want 1000", b)
	}

	// Amount must be an unsigned integer string.
	c, rec = request(e, stdhttp.MethodPost, "/admin/currency/credit", adminPrincipal,
		mustJSON(map[string]any{"currency_id": "usdx", "account_id": borrowerPrincipal, "amount": "-5"}))
	_ = h.CreditAccount(c)
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("negative amount status = %d, want 422", rec.Code)
	}
}
