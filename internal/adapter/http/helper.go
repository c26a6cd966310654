package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"loanledger-backend/internal/domain/access"
	"loanledger-backend/internal/domain/asset"
	domainLoan "loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/usecase/ledger"
	"loanledger-backend/internal/usecase/repayment"
)

// principalID pulls the authenticated caller from the Ax-Principal-Id
// header. Signature-based origination consent lives outside this service;
// the header stands in for the verified caller identity.
func principalID(c echo.Context) (string, bool) {
	p := strings.TrimSpace(c.Request().Header.Get("Ax-Principal-Id"))
	if !reHex32.MatchString(p) {
		return "", false
	}
	return p, true
}

func pathID(c echo.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// statusFor maps domain errors onto HTTP codes: validation 400, missing 404,
// authorization 403, funds 402, state conflicts 409, paused 503.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainLoan.ErrInvalidTerms),
		errors.Is(err, domainLoan.ErrInvalidAmount),
		errors.Is(err, domainLoan.ErrMissedCountStale),
		errors.Is(err, ledger.ErrInvalidFee),
		errors.Is(err, repayment.ErrInsufficientPayment),
		errors.Is(err, repayment.ErrNotInstallmentLoan),
		errors.Is(err, repayment.ErrNotBulletLoan):
		return http.StatusBadRequest
	case errors.Is(err, domainLoan.ErrNotFound),
		errors.Is(err, asset.ErrNoteNotFound),
		errors.Is(err, asset.ErrCollateralNotFound),
		errors.Is(err, asset.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, access.ErrNotAuthorized),
		errors.Is(err, asset.ErrNotOwner),
		errors.Is(err, repayment.ErrNotLenderNote):
		return http.StatusForbidden
	case errors.Is(err, asset.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, domainLoan.ErrInvalidState),
		errors.Is(err, domainLoan.ErrCollateralInUse),
		errors.Is(err, domainLoan.ErrNotExpired),
		errors.Is(err, asset.ErrNoteBurned):
		return http.StatusConflict
	case errors.Is(err, domainLoan.ErrPaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}
