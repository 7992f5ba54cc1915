package handlers

import (
	"fmt"
	"time"

	"genieq-api/internal/adapters/http/middleware"
	"genieq-api/internal/core/services"
	"genieq-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// LedgerHandler exposes the caller's ticket balance
type LedgerHandler struct {
	ledgerService *services.LedgerService
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerService *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// ConsumeRequest spends tickets on a generation run
type ConsumeRequest struct {
	Units int `json:"units"`
}

// GrantRequest is an administrator's manual correction
type GrantRequest struct {
	MemberID uint   `json:"memberId"`
	Delta    int    `json:"delta"`
	Note     string `json:"note"`
}

// Summary returns {balance, lifetimeCredited} for the caller only
// @Summary My ticket balance
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /ledger [get]
func (h *LedgerHandler) Summary(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	summary, err := h.ledgerService.Summary(c.Context(), principal.MemberID)
	if err != nil {
		return respondError(c, err, "Failed to load balance")
	}
	return response.Success(c, "Balance retrieved successfully", summary)
}

// Entries lists the caller's ledger entries, newest first
// @Summary My ledger entries
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD, inclusive)"
// @Success 200 {object} response.Response
// @Router /ledger/entries [get]
func (h *LedgerHandler) Entries(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	entries, err := h.ledgerService.History(c.Context(), principal.MemberID, from, to)
	if err != nil {
		return respondError(c, err, "Failed to load ledger")
	}
	return response.Success(c, "Ledger retrieved successfully", entries)
}

// Consume debits tickets for one generation run
// @Summary Spend tickets
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ConsumeRequest true "Units"
// @Success 200 {object} response.Response
// @Failure 402 {object} response.Response
// @Router /ledger/consume [post]
func (h *LedgerHandler) Consume(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req ConsumeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	entry, err := h.ledgerService.Consume(c.Context(), principal.MemberID, req.Units)
	if err != nil {
		return respondError(c, err, "Failed to spend tickets")
	}
	return response.Success(c, "Tickets spent", entry)
}

// Grant appends a manual entry for any member
// @Summary Grant or revoke tickets (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GrantRequest true "Grant"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/ledger/grant [post]
func (h *LedgerHandler) Grant(c *fiber.Ctx) error {
	var req GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.MemberID == 0 || req.Delta == 0 {
		return response.BadRequest(c, "memberId and a non-zero delta are required")
	}

	entry, err := h.ledgerService.Grant(c.Context(), req.MemberID, req.Delta, req.Note)
	if err != nil {
		return respondError(c, err, "Failed to grant tickets")
	}
	return response.Created(c, "Ledger entry created", entry)
}

// parseDateRange reads ?from=YYYY-MM-DD&to=YYYY-MM-DD as [from, to+1 day)
func parseDateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("from must be YYYY-MM-DD")
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("to must be YYYY-MM-DD")
		}
		to = t.AddDate(0, 0, 1)
	}
	return from, to, nil
}
