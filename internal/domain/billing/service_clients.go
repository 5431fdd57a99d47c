package billing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"shopledger/internal/domain/work"
)

type QuickPaymentResult struct {
	Action      string     `json:"action"`
	Updated     []WorkItem `json:"updated"`
	Unallocated int64      `json:"unallocated"`
	Client      Client     `json:"client"`
}

type BulkItem struct {
	WorkID   string `json:"workId"`
	WorkType string `json:"workType"`
	Amount   int64  `json:"amount"`
}

type BulkItemResult struct {
	WorkID   string `json:"workId"`
	WorkType string `json:"workType"`
	Success  bool   `json:"success"`
	Amount   int64  `json:"amount"`
	Error    string `json:"error,omitempty"`
}

type BulkResult struct {
	Results   []BulkItemResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Client    *Client          `json:"client,omitempty"`
}

type WorkPaymentResult struct {
	Item   WorkItem `json:"item"`
	Client Client   `json:"client"`
}

func (s *Service) CreateClient(ctx context.Context, shopName string, profile ClientProfile) (Client, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	return s.store.CreateClient(ctx, shopName, profile)
}

func (s *Service) GetClient(ctx context.Context, shopName, clientID string) (Client, error) {
	client, err := s.store.GetClient(ctx, shopName, clientID)
	if err != nil {
		return Client{}, err
	}
	history, err := s.store.ListPaymentHistory(ctx, client.ID)
	if err != nil {
		return Client{}, err
	}
	client.PaymentHistory = history
	return client, nil
}

func (s *Service) ListClients(ctx context.Context, shopName string) ([]Client, error) {
	return s.store.ListClients(ctx, shopName)
}

func (s *Service) UpdateClient(ctx context.Context, shopName, clientID string, profile ClientProfile) (Client, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	if err := s.store.UpdateClientProfile(ctx, shopName, clientID, profile); err != nil {
		return Client{}, err
	}
	return s.GetClient(ctx, shopName, clientID)
}

// RecomputeClientTotals rebuilds due, received, pending and status from every
// order and project of the client.
func (s *Service) RecomputeClientTotals(ctx context.Context, shopName, clientID string) (Client, error) {
	var client Client
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		client, err = s.store.LockClient(ctx, shopName, clientID)
		if err != nil {
			return err
		}
		return s.recomputeLocked(ctx, shopName, &client)
	})
	return client, err
}

func (s *Service) WorkHistory(ctx context.Context, shopName, clientID string) (WorkHistory, error) {
	client, err := s.GetClient(ctx, shopName, clientID)
	if err != nil {
		return WorkHistory{}, err
	}
	items, err := s.store.ListClientWork(ctx, shopName, clientID)
	if err != nil {
		return WorkHistory{}, err
	}
	return WorkHistory{Client: client, Items: items, Computed: ComputeTotals(items)}, nil
}

func (s *Service) QuickPayment(ctx context.Context, shopName, clientID, action string, amount int64) (QuickPaymentResult, error) {
	if !slices.Contains(QuickActions, action) {
		return QuickPaymentResult{}, ErrInvalidAction
	}
	if action == ActionAddPayment && amount <= 0 {
		return QuickPaymentResult{}, ErrInvalidAmount
	}

	result := QuickPaymentResult{Action: action}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		client, err := s.store.LockClient(ctx, shopName, clientID)
		if err != nil {
			return err
		}
		items, err := s.store.ListClientWork(ctx, shopName, clientID)
		if err != nil {
			return err
		}
		var changed []WorkItem
		switch action {
		case ActionMarkAllPaid:
			changed = MarkAllPaid(items)
		case ActionClearPayments:
			changed = ClearPayments(items)
		case ActionAddPayment:
			changed, result.Unallocated = DistributePayment(items, amount)
		}
		for _, item := range changed {
			if err := s.store.SaveWorkPayment(ctx, shopName, item); err != nil {
				return err
			}
		}
		if err := s.recomputeLocked(ctx, shopName, &client); err != nil {
			return err
		}
		result.Updated = changed
		result.Client = client
		return nil
	})
	if err != nil {
		return QuickPaymentResult{}, err
	}
	return result, nil
}

// BulkPayment sets the received amount of each listed item independently.
// A bad item is reported in its result and does not stop the others.
func (s *Service) BulkPayment(ctx context.Context, shopName, clientID string, items []BulkItem) (BulkResult, error) {
	if len(items) == 0 {
		return BulkResult{}, ErrEmptyBatch
	}
	if _, err := s.store.GetClient(ctx, shopName, clientID); err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{Results: make([]BulkItemResult, 0, len(items))}
	for _, item := range items {
		res := BulkItemResult{WorkID: item.WorkID, WorkType: item.WorkType, Amount: item.Amount}
		if err := s.applyBulkItem(ctx, shopName, clientID, item); err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
			result.Succeeded++
		}
		result.Results = append(result.Results, res)
	}
	if result.Succeeded == 0 {
		return result, nil
	}
	client, err := s.RecomputeClientTotals(ctx, shopName, clientID)
	if err != nil {
		return result, fmt.Errorf("failed to recompute client totals: %w", err)
	}
	result.Client = &client
	return result, nil
}

func (s *Service) applyBulkItem(ctx context.Context, shopName, clientID string, in BulkItem) error {
	if err := uuid.Validate(strings.TrimSpace(in.WorkID)); err != nil {
		return ErrInvalidWorkID
	}
	kind, err := work.ParseKind(in.WorkType)
	if err != nil {
		return err
	}
	if in.Amount < 0 {
		return ErrInvalidAmount
	}
	ref := work.Ref{Kind: kind, ID: strings.TrimSpace(in.WorkID)}
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.LockClient(ctx, shopName, clientID); err != nil {
			return err
		}
		item, err := s.store.GetWorkItem(ctx, shopName, ref)
		if err != nil {
			return err
		}
		if item.ClientID != clientID {
			return ErrWorkMismatch
		}
		if in.Amount > item.TotalAmount {
			return ErrAmountExceedsTotal
		}
		item.ReceivedPayment = in.Amount
		item.Normalize()
		return s.store.SaveWorkPayment(ctx, shopName, item)
	})
}

// SetWorkPayment overwrites the received amount of one order or project and
// recomputes its client.
func (s *Service) SetWorkPayment(ctx context.Context, shopName string, ref work.Ref, amount int64) (WorkPaymentResult, error) {
	if amount < 0 {
		return WorkPaymentResult{}, ErrInvalidAmount
	}
	var out WorkPaymentResult
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		item, client, err := s.lockWork(ctx, shopName, ref)
		if err != nil {
			return err
		}
		if amount > item.TotalAmount {
			return ErrAmountExceedsTotal
		}
		item.ReceivedPayment = amount
		item.Normalize()
		if err := s.store.SaveWorkPayment(ctx, shopName, item); err != nil {
			return err
		}
		if err := s.recomputeLocked(ctx, shopName, &client); err != nil {
			return err
		}
		out = WorkPaymentResult{Item: item, Client: client}
		return nil
	})
	return out, err
}

// AdjustClientPayment overrides the client's received amount by hand and
// logs the change in the payment history.
func (s *Service) AdjustClientPayment(ctx context.Context, shopName, clientID string, received int64, notes, actorID string) (Client, error) {
	if received < 0 {
		return Client{}, ErrInvalidAmount
	}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		client, err := s.store.LockClient(ctx, shopName, clientID)
		if err != nil {
			return err
		}
		if received > client.TotalPaymentsDue {
			return ErrAmountExceedsTotal
		}
		previous := client.ReceivedPayments
		if err := s.store.SaveClientTotals(ctx, client.ID, DeriveTotals(client.TotalPaymentsDue, received)); err != nil {
			return err
		}
		return s.store.AppendPaymentHistory(ctx, client.ID, PaymentHistoryEntry{
			Amount:         received,
			PreviousAmount: previous,
			Notes:          strings.TrimSpace(notes),
			UpdatedBy:      actorID,
			UpdatedAt:      s.now(),
		})
	})
	if err != nil {
		return Client{}, err
	}
	return s.GetClient(ctx, shopName, clientID)
}

// IsNotFound reports whether err is one of the billing not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}
