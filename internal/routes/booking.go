package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/booking"
)

// RegisterBookingRoutes wires booking, tracking and label endpoints. The rate
// limiter guards only the endpoints that reach the carrier.
func RegisterBookingRoutes(r fiber.Router, h *booking.Handler, rateLimiter fiber.Handler) {
	r.Post("/bookings", rateLimiter, h.Book)
	r.Post("/bookings/batch", rateLimiter, h.BookBatch)
	r.Get("/tracking/:waybill", h.Track)
	r.Get("/labels/:waybill", h.Label)
}
