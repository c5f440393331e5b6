package booking

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/carrier"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/ledger"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/pricing"
)

// Tracker is the post-booking carrier surface: scan history and labels.
type Tracker interface {
	Track(ctx context.Context, waybill string) ([]carrier.TrackingEvent, error)
	Label(ctx context.Context, waybill string) ([]byte, error)
}

// Handler exposes booking endpoints.
type Handler struct {
	service *Service
	tracker Tracker
}

// NewHandler builds a booking HTTP handler.
func NewHandler(service *Service, tracker Tracker) *Handler {
	return &Handler{service: service, tracker: tracker}
}

type shipmentRequest struct {
	ConsigneeName  string  `json:"consignee_name"`
	ConsigneePhone string  `json:"consignee_phone"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	Pincode        string  `json:"pincode"`
	WeightKg       float64 `json:"weight_kg"`
	DeclaredValue  int64   `json:"declared_value"`
	Units          int     `json:"units"`
	ServiceType    string  `json:"service_type"`
	RecipientType  string  `json:"recipient_type"`
}

type bookRequest struct {
	AccountID string          `json:"account_id"`
	Shipment  shipmentRequest `json:"shipment"`
}

type batchRequest struct {
	AccountID string            `json:"account_id"`
	Shipments []shipmentRequest `json:"shipments"`
}

type outcomeResponse struct {
	Ref            string            `json:"ref"`
	State          string            `json:"state"`
	Price          int64             `json:"price"`
	Breakdown      pricing.Breakdown `json:"breakdown"`
	Waybill        string            `json:"waybill,omitempty"`
	TrackingURL    string            `json:"tracking_url,omitempty"`
	Fallback       bool              `json:"fallback"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
	BalanceAfter   int64             `json:"balance_after"`
	Error          string            `json:"error,omitempty"`
}

func toShipmentInput(req shipmentRequest) ShipmentInput {
	units := req.Units
	if units == 0 {
		units = 1
	}
	return ShipmentInput{
		ConsigneeName:  req.ConsigneeName,
		ConsigneePhone: req.ConsigneePhone,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		Pincode:        req.Pincode,
		WeightKg:       req.WeightKg,
		DeclaredValue:  req.DeclaredValue,
		Units:          units,
		ServiceType:    req.ServiceType,
		RecipientType:  req.RecipientType,
	}
}

func toOutcomeResponse(outcome Outcome, err error) outcomeResponse {
	resp := outcomeResponse{
		Ref:            outcome.Ref,
		State:          string(outcome.State),
		Price:          outcome.Price,
		Breakdown:      outcome.Breakdown,
		Waybill:        outcome.Waybill,
		TrackingURL:    outcome.TrackingURL,
		Fallback:       outcome.Fallback,
		FallbackReason: outcome.FallbackReason,
		BalanceAfter:   outcome.BalanceAfter,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// Book prices, debits and books a single shipment.
func (h *Handler) Book(c *fiber.Ctx) error {
	var req bookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.service.Book(c.UserContext(), req.AccountID, toShipmentInput(req.Shipment))
	if err != nil {
		return bookingError(c, outcome, err)
	}

	return c.Status(http.StatusCreated).JSON(toOutcomeResponse(outcome, nil))
}

// BookBatch prices and books a batch of shipments under one debit.
func (h *Handler) BookBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	inputs := make([]ShipmentInput, len(req.Shipments))
	for i, s := range req.Shipments {
		inputs[i] = toShipmentInput(s)
	}

	outcome, err := h.service.BookBatch(c.UserContext(), req.AccountID, inputs)
	if err != nil {
		return batchError(c, err)
	}

	shipments := make([]outcomeResponse, len(outcome.Shipments))
	for i, s := range outcome.Shipments {
		shipments[i] = outcomeResponse{
			Ref:            s.Ref,
			Price:          s.Price,
			Waybill:        s.Waybill,
			TrackingURL:    s.TrackingURL,
			Fallback:       s.Fallback,
			FallbackReason: s.FallbackReason,
		}
		if s.Err != nil {
			shipments[i].Error = s.Err.Error()
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"ref":             outcome.Ref,
		"total_price":     outcome.TotalPrice,
		"refunded_amount": outcome.RefundedAmount,
		"balance_after":   outcome.BalanceAfter,
		"shipments":       shipments,
	})
}

// Track returns the normalized scan history for a waybill.
func (h *Handler) Track(c *fiber.Ctx) error {
	waybill := c.Params("waybill")
	events, err := h.tracker.Track(c.UserContext(), waybill)
	if err != nil {
		if errors.Is(err, carrier.ErrCarrierAuth) {
			return fiber.NewError(http.StatusBadGateway, "carrier rejected credentials")
		}
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"waybill": waybill,
		"events":  events,
	})
}

// Label streams the printable label document for a waybill.
func (h *Handler) Label(c *fiber.Ctx) error {
	waybill := c.Params("waybill")
	doc, err := h.tracker.Label(c.UserContext(), waybill)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Status(http.StatusOK).Send(doc)
}

func bookingError(c *fiber.Ctx, outcome Outcome, err error) error {
	var ife *ledger.InsufficientFundsError
	if errors.As(err, &ife) {
		return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{
			"error":     "insufficient funds",
			"balance":   ife.Balance,
			"required":  ife.Required,
			"shortfall": ife.Shortfall(),
		})
	}

	var compErr *CompensationError
	if errors.As(err, &compErr) {
		// Money is stuck; operators were notified. Do not pretend otherwise.
		return fiber.NewError(http.StatusInternalServerError, compErr.Error())
	}

	if outcome.State == StateCompensated {
		return c.Status(http.StatusUnprocessableEntity).JSON(toOutcomeResponse(outcome, err))
	}

	var valErr *carrier.ValidationError
	if errors.As(err, &valErr) || errors.Is(err, pricing.ErrInvalidInput) {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return fiber.NewError(http.StatusInternalServerError, err.Error())
}

func batchError(c *fiber.Ctx, err error) error {
	var ife *ledger.InsufficientFundsError
	if errors.As(err, &ife) {
		return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{
			"error":     "insufficient funds",
			"balance":   ife.Balance,
			"required":  ife.Required,
			"shortfall": ife.Shortfall(),
		})
	}
	var compErr *CompensationError
	if errors.As(err, &compErr) {
		return fiber.NewError(http.StatusInternalServerError, compErr.Error())
	}
	if errors.Is(err, pricing.ErrInvalidInput) {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return fiber.NewError(http.StatusInternalServerError, err.Error())
}
