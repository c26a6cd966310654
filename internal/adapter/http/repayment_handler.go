package http

import (
	"math/big"
	"net/http"

	"loanledger-backend/internal/usecase/repayment"

	"github.com/labstack/echo/v4"
)

type RepaymentHandler struct{ uc *repayment.Usecase }

func NewRepaymentHandler(uc *repayment.Usecase) *RepaymentHandler {
	return &RepaymentHandler{uc: uc}
}

func (h *RepaymentHandler) withNote(c echo.Context) (caller string, noteID uint64, ok bool) {
	caller, ok = principalID(c)
	if !ok {
		return "", 0, false
	}
	noteID, ok = pathID(c, "note_id")
	return caller, noteID, ok
}

func (h *RepaymentHandler) Repay(c echo.Context) error {
	caller, noteID, ok := h.withNote(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing principal or invalid note_id"})
	}
	dto, err := h.uc.Repay(c.Request().Context(), caller, noteID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type repayPartReq struct {
	Amount string `json:"amount" validate:"required,amount"`
}

func (h *RepaymentHandler) RepayPart(c echo.Context) error {
	caller, noteID, ok := h.withNote(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing principal or invalid note_id"})
	}
	var req repayPartReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	amount, _ := new(big.Int).SetString(req.Amount, 10)
	dto, err := h.uc.RepayPart(c.Request().Context(), caller, noteID, amount)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RepaymentHandler) RepayPartMinimum(c echo.Context) error {
	caller, noteID, ok := h.withNote(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing principal or invalid note_id"})
	}
	dto, err := h.uc.RepayPartMinimum(c.Request().Context(), caller, noteID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RepaymentHandler) Claim(c echo.Context) error {
	caller, noteID, ok := h.withNote(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing principal or invalid note_id"})
	}
	dto, err := h.uc.Claim(c.Request().Context(), caller, noteID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RepaymentHandler) BurnNote(c echo.Context) error {
	caller, noteID, ok := h.withNote(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing principal or invalid note_id"})
	}
	if err := h.uc.BurnNote(c.Request().Context(), caller, noteID); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
