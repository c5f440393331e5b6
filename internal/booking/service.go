package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/carrier"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/ledger"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/margin"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/metrics"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/notification"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/pricing"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/wallet"
)

// WaybillIssuer is the carrier gateway surface the orchestrator depends on.
type WaybillIssuer interface {
	IssueWaybill(ctx context.Context, req carrier.BookingRequest) carrier.BookingResult
}

// Origin identifies the pickup point stamped onto every carrier request.
type Origin struct {
	Name    string
	Address string
	Pincode string
}

// Service runs the booking saga: price, debit, carrier call, then settle or
// compensate. The ledger is the only shared mutable state; the carrier call
// is the only unreliable step.
type Service struct {
	resolver *pricing.Resolver
	ledger   ledger.Ledger
	gateway  WaybillIssuer
	accounts *wallet.Service
	margins  *margin.Recorder
	notifier notification.Notifier
	logger   *slog.Logger
	origin   Origin

	// Delay between carrier calls inside one batch; sleep overridable in tests.
	batchDelay time.Duration
	sleep      func(time.Duration)
}

// NewService wires the booking orchestrator.
func NewService(resolver *pricing.Resolver, led ledger.Ledger, gateway WaybillIssuer,
	accounts *wallet.Service, margins *margin.Recorder, notifier notification.Notifier,
	origin Origin, batchDelay time.Duration, logger *slog.Logger) *Service {
	return &Service{
		resolver:   resolver,
		ledger:     led,
		gateway:    gateway,
		accounts:   accounts,
		margins:    margins,
		notifier:   notifier,
		logger:     logger,
		origin:     origin,
		batchDelay: batchDelay,
		sleep:      time.Sleep,
	}
}

// Book runs the single-shipment saga. Pricing and sufficiency failures abort
// before any side effect; after the debit the saga always terminates in
// SETTLED (debit stands, fallback waybills included) or COMPENSATED (exact
// refund posted). Only a failed refund escalates, as *CompensationError.
func (s *Service) Book(ctx context.Context, accountID string, shipment ShipmentInput) (Outcome, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return Outcome{}, err
	}

	ref := "bk-" + uuid.NewString()

	breakdown, err := s.resolver.Resolve(ctx, pricing.ResolveInput{
		AccountID:     account.ID,
		Role:          account.Role,
		WeightKg:      shipment.WeightKg,
		ZoneKey:       shipment.Pincode,
		Units:         shipment.Units,
		ServiceType:   shipment.ServiceType,
		RecipientType: shipment.RecipientType,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("price resolution: %w", err)
	}
	s.transition(ref, StatePriced, "price", breakdown.Total)

	report, err := s.ledger.CheckSufficient(ctx, account.ID, breakdown.Total)
	if err != nil {
		return Outcome{}, err
	}
	if !report.Sufficient {
		return Outcome{}, &ledger.InsufficientFundsError{
			AccountID: account.ID,
			Balance:   report.Balance,
			Required:  breakdown.Total,
		}
	}

	debit, err := s.ledger.Debit(ctx, account.ID, breakdown.Total, "shipment booking", ref)
	if err != nil {
		// Race lost between check and debit; still no carrier call was made.
		return Outcome{}, err
	}
	s.transition(ref, StateDebited, "entry", debit.EntryID)

	result := s.gateway.IssueWaybill(ctx, s.carrierRequest(ref, shipment))
	s.transition(ref, StateCarrierCalled, "attempts", result.Attempts)

	if !result.Success() {
		return s.compensate(ctx, account.ID, ref, breakdown, result)
	}
	return s.settle(ctx, account, ref, breakdown, shipment, result, debit.Balance)
}

// BookBatch runs the batched saga for one account: a single debit for the
// summed price, sequential carrier calls, then one compensating refund for
// the failed subset. Final balance equals initial minus the sum of the
// shipments that obtained waybills, regardless of failure ordering.
func (s *Service) BookBatch(ctx context.Context, accountID string, shipments []ShipmentInput) (BatchOutcome, error) {
	if len(shipments) == 0 {
		return BatchOutcome{}, fmt.Errorf("%w: batch must contain at least one shipment", pricing.ErrInvalidInput)
	}

	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return BatchOutcome{}, err
	}

	batchRef := "batch-" + uuid.NewString()

	breakdowns := make([]pricing.Breakdown, len(shipments))
	var total int64
	for i, shipment := range shipments {
		b, err := s.resolver.Resolve(ctx, pricing.ResolveInput{
			AccountID:     account.ID,
			Role:          account.Role,
			WeightKg:      shipment.WeightKg,
			ZoneKey:       shipment.Pincode,
			Units:         shipment.Units,
			ServiceType:   shipment.ServiceType,
			RecipientType: shipment.RecipientType,
		})
		if err != nil {
			return BatchOutcome{}, fmt.Errorf("price resolution for shipment %d: %w", i, err)
		}
		breakdowns[i] = b
		total += b.Total
	}
	s.transition(batchRef, StatePriced, "total", total)

	report, err := s.ledger.CheckSufficient(ctx, account.ID, total)
	if err != nil {
		return BatchOutcome{}, err
	}
	if !report.Sufficient {
		return BatchOutcome{}, &ledger.InsufficientFundsError{
			AccountID: account.ID,
			Balance:   report.Balance,
			Required:  total,
		}
	}

	debit, err := s.ledger.Debit(ctx, account.ID, total, fmt.Sprintf("batch booking of %d shipments", len(shipments)), batchRef)
	if err != nil {
		return BatchOutcome{}, err
	}
	s.transition(batchRef, StateDebited, "entry", debit.EntryID)

	outcome := BatchOutcome{Ref: batchRef, TotalPrice: total, BalanceAfter: debit.Balance}
	var failedSum int64

	for i, shipment := range shipments {
		if i > 0 && s.batchDelay > 0 {
			s.sleep(s.batchDelay)
		}

		ref := fmt.Sprintf("%s/%d", batchRef, i)
		result := s.gateway.IssueWaybill(ctx, s.carrierRequest(ref, shipment))

		shipOutcome := ShipmentOutcome{Ref: ref, Price: breakdowns[i].Total}
		if result.Success() {
			shipOutcome.Waybill = result.Waybill
			shipOutcome.TrackingURL = result.TrackingURL
			shipOutcome.Fallback = result.Fallback
			shipOutcome.FallbackReason = result.FallbackReason
			metrics.BookingsSettled.Inc()
			s.recordMargin(ctx, ref, breakdowns[i].Total, result, shipment)
		} else {
			shipOutcome.Err = result.Err
			failedSum += breakdowns[i].Total
		}
		outcome.Shipments = append(outcome.Shipments, shipOutcome)
	}
	s.transition(batchRef, StateCarrierCalled, "failed_sum", failedSum)

	if failedSum > 0 {
		refund, err := s.ledger.Refund(ctx, account.ID, failedSum,
			fmt.Sprintf("refund for failed shipments in batch %s", batchRef), batchRef)
		if err != nil {
			compErr := &CompensationError{BookingRef: batchRef, Amount: failedSum, Err: err}
			s.escalate(ctx, account.ID, compErr)
			return outcome, compErr
		}
		metrics.BookingsCompensated.Inc()
		outcome.RefundedAmount = failedSum
		outcome.BalanceAfter = refund.Balance
		s.transition(batchRef, StateCompensated, "refunded", failedSum)
	} else {
		s.transition(batchRef, StateSettled, "total", total)
	}

	return outcome, nil
}

func (s *Service) settle(ctx context.Context, account wallet.Account, ref string,
	breakdown pricing.Breakdown, shipment ShipmentInput, result carrier.BookingResult, balance int64) (Outcome, error) {
	metrics.BookingsSettled.Inc()
	s.transition(ref, StateSettled, "waybill", result.Waybill)

	s.recordMargin(ctx, ref, breakdown.Total, result, shipment)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindBookingSettled,
			Destination: account.ID,
			Body:        fmt.Sprintf("Shipment %s booked with waybill %s", ref, result.Waybill),
		})
	}

	return Outcome{
		Ref:            ref,
		State:          StateSettled,
		Price:          breakdown.Total,
		Breakdown:      breakdown,
		Waybill:        result.Waybill,
		TrackingURL:    result.TrackingURL,
		Fallback:       result.Fallback,
		FallbackReason: result.FallbackReason,
		BalanceAfter:   balance,
	}, nil
}

func (s *Service) compensate(ctx context.Context, accountID, ref string,
	breakdown pricing.Breakdown, result carrier.BookingResult) (Outcome, error) {
	// Refund the exact debited amount; never reprice at refund time.
	refund, err := s.ledger.Refund(ctx, accountID, breakdown.Total,
		fmt.Sprintf("refund for failed booking %s", ref), ref)
	if err != nil {
		compErr := &CompensationError{BookingRef: ref, Amount: breakdown.Total, Err: err}
		s.escalate(ctx, accountID, compErr)
		return Outcome{Ref: ref, State: StateCarrierCalled, Price: breakdown.Total, Breakdown: breakdown}, compErr
	}

	metrics.BookingsCompensated.Inc()
	s.transition(ref, StateCompensated, "refunded", breakdown.Total)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindBookingCompensated,
			Destination: accountID,
			Body:        fmt.Sprintf("Booking %s failed at the carrier; %d paise refunded", ref, breakdown.Total),
		})
	}

	return Outcome{
		Ref:          ref,
		State:        StateCompensated,
		Price:        breakdown.Total,
		Breakdown:    breakdown,
		BalanceAfter: refund.Balance,
	}, result.Err
}

func (s *Service) recordMargin(ctx context.Context, ref string, price int64, result carrier.BookingResult, shipment ShipmentInput) {
	if s.margins == nil {
		return
	}
	// Best-effort: the recorder logs its own failures for backfill.
	_, _ = s.margins.Record(ctx, ref, price, result.CourierCharge, margin.Detail{
		WeightKg:    shipment.WeightKg,
		ServiceType: shipment.ServiceType,
		Route:       fmt.Sprintf("%s → %s, %s", s.origin.Pincode, shipment.City, shipment.Pincode),
	})
}

func (s *Service) escalate(ctx context.Context, accountID string, compErr *CompensationError) {
	s.logger.Error("compensation failed, manual intervention required",
		"booking_ref", compErr.BookingRef, "account_id", accountID,
		"amount", compErr.Amount, "error", compErr.Err)
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCompensationStuck,
			Destination: "operations",
			Body:        compErr.Error(),
		})
	}
}

// transition writes one audit log line per saga state change, so stuck
// bookings can be found from logs and ledger references together.
func (s *Service) transition(ref string, state State, key string, value any) {
	s.logger.Info("booking transition", "ref", ref, "state", string(state), key, value)
}

func (s *Service) carrierRequest(ref string, shipment ShipmentInput) carrier.BookingRequest {
	return carrier.BookingRequest{
		Reference:      ref,
		ConsigneeName:  shipment.ConsigneeName,
		ConsigneePhone: shipment.ConsigneePhone,
		Address:        shipment.Address,
		City:           shipment.City,
		State:          shipment.State,
		Pincode:        shipment.Pincode,
		OriginName:     s.origin.Name,
		OriginAddress:  s.origin.Address,
		OriginPincode:  s.origin.Pincode,
		WeightKg:       shipment.WeightKg,
		DeclaredValue:  shipment.DeclaredValue,
		Pieces:         shipment.Units,
		ServiceType:    shipment.ServiceType,
	}
}
