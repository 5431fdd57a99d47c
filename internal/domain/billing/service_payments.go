package billing

import (
	"context"
	"slices"
	"strings"
	"time"
)

type PaymentInput struct {
	OrderID       string    `json:"orderId" validate:"required,uuid"`
	ClientID      string    `json:"clientId" validate:"required,uuid"`
	Amount        int64     `json:"amount" validate:"gt=0"`
	PaymentDate   time.Time `json:"paymentDate"`
	PaymentMethod string    `json:"paymentMethod" validate:"omitempty,oneof=cash upi bank_transfer cheque other"`
	Notes         string    `json:"notes" validate:"max=2000"`
	ReceivedBy    string    `json:"-"`
}

type PaymentApplied struct {
	Payment Payment `json:"payment"`
	Order   Order   `json:"order"`
	Client  Client  `json:"client"`
}

// RecordPayment stores a payment and moves the order and client received
// amounts by the same value. The client side is updated arithmetically,
// not by a full recompute.
func (s *Service) RecordPayment(ctx context.Context, shopName string, in PaymentInput) (PaymentApplied, error) {
	if in.Amount <= 0 {
		return PaymentApplied{}, ErrInvalidAmount
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = "cash"
	}
	if !slices.Contains(PaymentMethods, in.PaymentMethod) {
		return PaymentApplied{}, ErrInvalidMethod
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = s.now()
	}

	var out PaymentApplied
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		client, err := s.store.LockClient(ctx, shopName, in.ClientID)
		if err != nil {
			return err
		}
		order, err := s.store.GetOrder(ctx, shopName, in.OrderID)
		if err != nil {
			return err
		}
		if order.ClientID != client.ID {
			return ErrWorkMismatch
		}
		if order.ReceivedPayment+in.Amount > order.TotalAmount {
			return ErrAmountExceedsTotal
		}
		payment, err := s.store.CreatePayment(ctx, Payment{
			ShopName:      shopName,
			OrderID:       order.ID,
			ClientID:      client.ID,
			Amount:        in.Amount,
			PaymentDate:   in.PaymentDate,
			PaymentMethod: in.PaymentMethod,
			ReceivedBy:    in.ReceivedBy,
			Notes:         strings.TrimSpace(in.Notes),
		})
		if err != nil {
			return err
		}
		order.ReceivedPayment += in.Amount
		order.Normalize()
		if err := s.store.SaveWorkPayment(ctx, shopName, orderItem(order)); err != nil {
			return err
		}
		client.ApplyTotals(DeriveTotals(client.TotalPaymentsDue, client.ReceivedPayments+in.Amount))
		if err := s.store.SaveClientTotals(ctx, client.ID, client.Totals()); err != nil {
			return err
		}
		out = PaymentApplied{Payment: payment, Order: order, Client: client}
		return nil
	})
	return out, err
}

// DeletePayment reverses RecordPayment, clamping both sides at zero.
func (s *Service) DeletePayment(ctx context.Context, shopName, paymentID string) (PaymentApplied, error) {
	payment, err := s.store.GetPayment(ctx, shopName, paymentID)
	if err != nil {
		return PaymentApplied{}, err
	}
	var out PaymentApplied
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		client, err := s.store.LockClient(ctx, shopName, payment.ClientID)
		if err != nil {
			return err
		}
		payment, err := s.store.GetPayment(ctx, shopName, paymentID)
		if err != nil {
			return err
		}
		order, err := s.store.GetOrder(ctx, shopName, payment.OrderID)
		if err != nil {
			return err
		}
		if err := s.store.DeletePayment(ctx, shopName, payment.ID); err != nil {
			return err
		}
		order.ReceivedPayment = max(0, order.ReceivedPayment-payment.Amount)
		order.Normalize()
		if err := s.store.SaveWorkPayment(ctx, shopName, orderItem(order)); err != nil {
			return err
		}
		client.ApplyTotals(DeriveTotals(client.TotalPaymentsDue, max(0, client.ReceivedPayments-payment.Amount)))
		if err := s.store.SaveClientTotals(ctx, client.ID, client.Totals()); err != nil {
			return err
		}
		out = PaymentApplied{Payment: payment, Order: order, Client: client}
		return nil
	})
	return out, err
}

func (s *Service) ListPayments(ctx context.Context, shopName string, filter PaymentFilter) ([]Payment, error) {
	return s.store.ListPayments(ctx, shopName, filter)
}

func orderItem(o Order) WorkItem {
	return WorkItem{
		Ref:              o.Ref(),
		ClientID:         o.ClientID,
		Name:             o.OrderName,
		Date:             o.OrderDate,
		TotalAmount:      o.TotalAmount,
		ReceivedPayment:  o.ReceivedPayment,
		RemainingPayment: o.RemainingPayment,
		Status:           o.Status,
		CompletionDate:   o.CompletionDate,
		CreatedAt:        o.CreatedAt,
	}
}
