package wallet

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes merchant account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type accountResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Create registers a merchant account with a zero-balance ledger record.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.Create(c.UserContext(), CreateInput{Name: req.Name, Role: req.Role})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(accountResponse{
		ID:     account.ID,
		Name:   account.Name,
		Role:   account.Role,
		Status: account.Status,
	})
}

// Get returns account metadata.
func (h *Handler) Get(c *fiber.Ctx) error {
	account, err := h.service.Get(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(accountResponse{
		ID:     account.ID,
		Name:   account.Name,
		Role:   account.Role,
		Status: account.Status,
	})
}

// Balance returns the account's current ledger balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id":     balance.AccountID,
		"balance":        balance.Amount,
		"total_credited": balance.TotalCredited,
		"total_debited":  balance.TotalDebited,
		"last_credit_at": balance.LastCreditAt,
		"timestamp":      balance.AsOf,
	})
}

type rechargeRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// Recharge credits funds into the account.
func (h *Handler) Recharge(c *fiber.Ctx) error {
	var req rechargeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Recharge(c.UserContext(), c.Params("accountId"), req.Amount, req.Reference)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"entry_id": res.EntryID,
		"balance":  res.Balance,
	})
}

// History returns the account's transaction log, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	entries, err := h.service.History(c.UserContext(), c.Params("accountId"), limit, offset)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
