package pricing

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes pricing endpoints: a quote endpoint for the resolver and
// administrative upserts for each rule kind.
type Handler struct {
	resolver *Resolver
	store    RuleStore
}

// NewHandler builds a pricing HTTP handler.
func NewHandler(resolver *Resolver, store RuleStore) *Handler {
	return &Handler{resolver: resolver, store: store}
}

type quoteRequest struct {
	AccountID     string  `json:"account_id"`
	Role          string  `json:"role"`
	WeightKg      float64 `json:"weight_kg"`
	ZoneKey       string  `json:"zone_key"`
	Units         int     `json:"units"`
	ServiceType   string  `json:"service_type"`
	RecipientType string  `json:"recipient_type"`
}

// Quote resolves a price without booking anything.
func (h *Handler) Quote(c *fiber.Ctx) error {
	var req quoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Units == 0 {
		req.Units = 1
	}

	breakdown, err := h.resolver.Resolve(c.UserContext(), ResolveInput{
		AccountID:     req.AccountID,
		Role:          req.Role,
		WeightKg:      req.WeightKg,
		ZoneKey:       req.ZoneKey,
		Units:         req.Units,
		ServiceType:   req.ServiceType,
		RecipientType: req.RecipientType,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(breakdown)
}

type accountRateRequest struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	RatePaise int64  `json:"rate_paise"`
	Active    bool   `json:"active"`
}

// SaveAccountRate upserts a per-account base rate.
func (h *Handler) SaveAccountRate(c *fiber.Ctx) error {
	var req accountRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.AccountID == "" || req.RatePaise <= 0 {
		return fiber.NewError(http.StatusBadRequest, "account_id and a positive rate_paise are required")
	}
	saved, err := h.store.SaveAccountRate(c.UserContext(), AccountRate{
		ID: req.ID, AccountID: req.AccountID, RatePaise: req.RatePaise, Active: req.Active,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(saved)
}

type roleRateRequest struct {
	ID         string  `json:"id"`
	Role       string  `json:"role"`
	RatePaise  int64   `json:"rate_paise"`
	Multiplier float64 `json:"multiplier"`
	Active     bool    `json:"active"`
}

// SaveRoleRate upserts a role base rate with its multiplier.
func (h *Handler) SaveRoleRate(c *fiber.Ctx) error {
	var req roleRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Role == "" || req.RatePaise <= 0 {
		return fiber.NewError(http.StatusBadRequest, "role and a positive rate_paise are required")
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}
	saved, err := h.store.SaveRoleRate(c.UserContext(), RoleRate{
		ID: req.ID, Role: req.Role, RatePaise: req.RatePaise, Multiplier: req.Multiplier, Active: req.Active,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(saved)
}

type weightTierRequest struct {
	ID         string  `json:"id"`
	MinKg      float64 `json:"min_kg"`
	MaxKg      float64 `json:"max_kg"`
	PerKgPaise int64   `json:"per_kg_paise"`
	Active     bool    `json:"active"`
}

// SaveWeightTier upserts a weight surcharge tier.
func (h *Handler) SaveWeightTier(c *fiber.Ctx) error {
	var req weightTierRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.MaxKg <= req.MinKg || req.MinKg < 0 {
		return fiber.NewError(http.StatusBadRequest, "tier bounds must satisfy 0 <= min_kg < max_kg")
	}
	saved, err := h.store.SaveWeightTier(c.UserContext(), WeightTier{
		ID: req.ID, MinKg: req.MinKg, MaxKg: req.MaxKg, PerKgPaise: req.PerKgPaise, Active: req.Active,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(saved)
}

type zoneRateRequest struct {
	ID             string `json:"id"`
	ZoneKey        string `json:"zone_key"`
	SurchargePaise int64  `json:"surcharge_paise"`
	Active         bool   `json:"active"`
}

// SaveZoneRate upserts a zone surcharge.
func (h *Handler) SaveZoneRate(c *fiber.Ctx) error {
	var req zoneRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ZoneKey == "" {
		return fiber.NewError(http.StatusBadRequest, "zone_key is required")
	}
	saved, err := h.store.SaveZoneRate(c.UserContext(), ZoneRate{
		ID: req.ID, ZoneKey: req.ZoneKey, SurchargePaise: req.SurchargePaise, Active: req.Active,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(saved)
}

type serviceRateRequest struct {
	ID             string `json:"id"`
	ServiceType    string `json:"service_type"`
	SurchargePaise int64  `json:"surcharge_paise"`
	Active         bool   `json:"active"`
}

// SaveServiceRate upserts a service-type surcharge.
func (h *Handler) SaveServiceRate(c *fiber.Ctx) error {
	var req serviceRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ServiceType == "" {
		return fiber.NewError(http.StatusBadRequest, "service_type is required")
	}
	saved, err := h.store.SaveServiceRate(c.UserContext(), ServiceRate{
		ID: req.ID, ServiceType: req.ServiceType, SurchargePaise: req.SurchargePaise, Active: req.Active,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(saved)
}

type recipientRateRequest struct {
	ID            string  `json:"id"`
	RecipientType string  `json:"recipient_type"`
	Percent       float64 `json:"percent"`
	Active        bool    `json:"active"`
}

// SaveRecipientRate upserts a recipient-category percentage adjustment.
func (h *Handler) SaveRecipientRate(c *fiber.Ctx) error {
	var req recipientRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.RecipientType == "" {
		return fiber.NewError(http.StatusBadRequest, "recipient_type is required")
	}
	saved, err := h.store.SaveRecipientRate(c.UserContext(), RecipientRate{
		ID: req.ID, RecipientType: req.RecipientType, Percent: req.Percent, Active: req.Active,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(saved)
}
