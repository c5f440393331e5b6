package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/pricing"
)

// RegisterPricingRoutes wires the quote endpoint and the administrative rule
// upserts.
func RegisterPricingRoutes(r fiber.Router, h *pricing.Handler) {
	r.Post("/pricing/quote", h.Quote)

	rules := r.Group("/pricing/rules")
	rules.Put("/account", h.SaveAccountRate)
	rules.Put("/role", h.SaveRoleRate)
	rules.Put("/weight-tier", h.SaveWeightTier)
	rules.Put("/zone", h.SaveZoneRate)
	rules.Put("/service", h.SaveServiceRate)
	rules.Put("/recipient", h.SaveRecipientRate)
}
