package http

import (
	"net/http"

	"loanledger-backend/internal/usecase/ledger"

	"github.com/labstack/echo/v4"
)

type LoanHandler struct{ uc *ledger.Usecase }

func NewLoanHandler(uc *ledger.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type createLoanReq struct {
	DurationSecs    int64  `json:"duration_secs"    validate:"required,gt=0"`
	Principal       string `json:"principal"        validate:"required,amount"`
	Interest        string `json:"interest"         validate:"required,amount"`
	CollateralID    string `json:"collateral_id"    validate:"required"`
	CurrencyID      string `json:"currency_id"      validate:"required"`
	NumInstallments uint64 `json:"num_installments" validate:"eveninstallments"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	caller, ok := principalID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.CreateLoan(c.Request().Context(), caller, ledger.CreateLoanInput{
		DurationSecs:    req.DurationSecs,
		Principal:       req.Principal,
		Interest:        req.Interest,
		CollateralID:    req.CollateralID,
		CurrencyID:      req.CurrencyID,
		NumInstallments: req.NumInstallments,
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type startLoanReq struct {
	Lender   string `json:"lender"   validate:"required,hex32"`
	Borrower string `json:"borrower" validate:"required,hex32"`
}

func (h *LoanHandler) StartLoan(c echo.Context) error {
	caller, ok := principalID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid Ax-Principal-Id"})
	}
	loanID, ok := pathID(c, "loan_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id path param"})
	}
	var req startLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.StartLoan(c.Request().Context(), caller, req.Lender, req.Borrower, loanID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID, ok := pathID(c, "loan_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan_id path param"})
	}
	dto, err := h.uc.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
