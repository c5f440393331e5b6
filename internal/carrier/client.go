package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiKeyHeader = "X-Api-Key"

// BookingResponse is the carrier's answer to a successful booking call.
// CourierCharge is the carrier's billed cost in paise when the response
// includes billing data; zero means the carrier omitted it.
type BookingResponse struct {
	Waybill       string
	TrackingURL   string
	CourierCharge int64
}

// RawTrackingEvent is one scan row as the carrier reports it, before its
// status vocabulary is normalized.
type RawTrackingEvent struct {
	Code        string
	Location    string
	Timestamp   time.Time
	Description string
}

// Client is the outbound surface of the carrier API. Implementations classify
// failures: ErrCarrierAuth for credential rejections, *BadRequestError for
// payload rejections, transient errors for everything else.
type Client interface {
	CreateBooking(ctx context.Context, req BookingRequest) (BookingResponse, error)
	Track(ctx context.Context, waybill string) ([]RawTrackingEvent, error)
	Label(ctx context.Context, waybill string) ([]byte, error)
}

// HTTPClient talks to the carrier's REST API with a static API key.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient builds a carrier client. Per-attempt deadlines come from the
// caller's context, so the underlying http.Client carries no timeout itself.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, apiKey: apiKey, http: &http.Client{}}
}

type bookingPayload struct {
	ReferenceNo    string  `json:"reference_no"`
	ConsigneeName  string  `json:"consignee_name"`
	ConsigneePhone string  `json:"consignee_phone"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	Pincode        string  `json:"pincode"`
	OriginName     string  `json:"origin_name"`
	OriginAddress  string  `json:"origin_address"`
	OriginPincode  string  `json:"origin_pincode"`
	WeightKg       float64 `json:"weight_kg"`
	DeclaredValue  int64   `json:"declared_value_paise"`
	Pieces         int     `json:"pieces"`
	ServiceType    string  `json:"service_type,omitempty"`
}

type bookingReply struct {
	WaybillNo     string `json:"waybill_no"`
	TrackingURL   string `json:"tracking_url"`
	CourierCharge int64  `json:"courier_charge_paise"`
	Error         string `json:"error"`
}

// CreateBooking posts one booking and returns the issued waybill.
func (c *HTTPClient) CreateBooking(ctx context.Context, req BookingRequest) (BookingResponse, error) {
	payload := bookingPayload{
		ReferenceNo:    req.Reference,
		ConsigneeName:  req.ConsigneeName,
		ConsigneePhone: req.ConsigneePhone,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		Pincode:        req.Pincode,
		OriginName:     req.OriginName,
		OriginAddress:  req.OriginAddress,
		OriginPincode:  req.OriginPincode,
		WeightKg:       req.WeightKg,
		DeclaredValue:  req.DeclaredValue,
		Pieces:         req.Pieces,
		ServiceType:    req.ServiceType,
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/bookings", payload)
	if err != nil {
		return BookingResponse{}, err
	}

	var reply bookingReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return BookingResponse{}, transientf("decode booking response: %w", err)
	}
	if reply.WaybillNo == "" {
		// A "success" with no waybill is useless to every downstream system.
		return BookingResponse{}, transientf("carrier response missing waybill number")
	}
	return BookingResponse{Waybill: reply.WaybillNo, TrackingURL: reply.TrackingURL, CourierCharge: reply.CourierCharge}, nil
}

type trackingReply struct {
	Events []struct {
		StatusCode  string    `json:"status_code"`
		Location    string    `json:"location"`
		Timestamp   time.Time `json:"timestamp"`
		Description string    `json:"description"`
	} `json:"events"`
}

// Track fetches the ordered scan history for a waybill.
func (c *HTTPClient) Track(ctx context.Context, waybill string) ([]RawTrackingEvent, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/tracking/"+waybill, nil)
	if err != nil {
		return nil, err
	}

	var reply trackingReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, transientf("decode tracking response: %w", err)
	}
	events := make([]RawTrackingEvent, 0, len(reply.Events))
	for _, e := range reply.Events {
		events = append(events, RawTrackingEvent{
			Code:        e.StatusCode,
			Location:    e.Location,
			Timestamp:   e.Timestamp,
			Description: e.Description,
		})
	}
	return events, nil
}

// Label fetches the printable label document for a waybill.
func (c *HTTPClient) Label(ctx context.Context, waybill string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/labels/"+waybill, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode carrier payload: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build carrier request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transientf("carrier call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientf("read carrier response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: carrier returned status %d", ErrCarrierAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, &BadRequestError{Message: errorMessage(body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, transientf("carrier returned status %d", resp.StatusCode)
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var reply struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &reply); err == nil {
		if reply.Error != "" {
			return reply.Error
		}
		if reply.Message != "" {
			return reply.Message
		}
	}
	return "unspecified payload defect"
}
