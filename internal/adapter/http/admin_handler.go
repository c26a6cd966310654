package http

import (
	"net/http"

	"loanledger-backend/internal/domain/access"
	domainLoan "loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/usecase/ledger"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct{ uc *ledger.Usecase }

func NewAdminHandler(uc *ledger.Usecase) *AdminHandler { return &AdminHandler{uc: uc} }

func (h *AdminHandler) caller(c echo.Context) (string, bool) { return principalID(c) }

func (h *AdminHandler) Pause(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	if err := h.uc.Pause(c.Request().Context(), caller); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"paused": true})
}

func (h *AdminHandler) Unpause(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	if err := h.uc.Unpause(c.Request().Context(), caller); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"paused": false})
}

type setFeeReq struct {
	Bps uint64 `json:"bps" validate:"lte=10000"`
}

func (h *AdminHandler) SetOriginationFee(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	var req setFeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if err := h.uc.SetOriginationFee(c.Request().Context(), caller, req.Bps); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{"bps": req.Bps})
}

type withdrawFeesReq struct {
	CurrencyID string `json:"currency_id" validate:"required"`
	To         string `json:"to"          validate:"required,hex32"`
}

func (h *AdminHandler) WithdrawFees(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	var req withdrawFeesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	amount, err := h.uc.WithdrawFees(c.Request().Context(), caller, req.CurrencyID, req.To)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"withdrawn": amount.String()})
}

type grantReq struct {
	Capability  string `json:"capability"   validate:"required,oneof=originator repayer fee_claimer admin"`
	PrincipalID string `json:"principal_id" validate:"required"`
}

func (h *AdminHandler) Grant(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if err := h.uc.GrantCapability(c.Request().Context(), caller, access.Capability(req.Capability), req.PrincipalID); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) Revoke(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if err := h.uc.RevokeCapability(c.Request().Context(), caller, access.Capability(req.Capability), req.PrincipalID); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type registerCollateralReq struct {
	AssetID string `json:"asset_id" validate:"required"`
	OwnerID string `json:"owner_id" validate:"required,hex32"`
}

func (h *AdminHandler) RegisterCollateral(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	var req registerCollateralReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if err := h.uc.RegisterCollateral(c.Request().Context(), caller, req.AssetID, req.OwnerID); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

type creditAccountReq struct {
	CurrencyID string `json:"currency_id" validate:"required"`
	AccountID  string `json:"account_id"  validate:"required,hex32"`
	Amount     string `json:"amount"      validate:"required,amount"`
}

func (h *AdminHandler) CreditAccount(c echo.Context) error {
	caller, ok := h.caller(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	var req creditAccountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	amount, err := domainLoan.ParseAmount(req.Amount)
	if err != nil {
		return jsonError(c, err)
	}
	if err := h.uc.CreditAccount(c.Request().Context(), caller, req.CurrencyID, req.AccountID, amount); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
