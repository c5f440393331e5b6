package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/wallet"
)

// RegisterWalletRoutes wires merchant account endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts/:accountId", h.Get)
	r.Get("/accounts/:accountId/balance", h.Balance)
	r.Post("/accounts/:accountId/recharge", h.Recharge)
	r.Get("/accounts/:accountId/transactions", h.History)
}
