package logistics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/identity"
	"shopledger/internal/domain/work"
)

// Works is the billing side transports hang off.
type Works interface {
	GetWorkItem(ctx context.Context, shopName string, ref work.Ref) (billing.WorkItem, error)
	ListOrders(ctx context.Context, shopName string, filter billing.OrderFilter) ([]billing.Order, error)
}

type Directory interface {
	GetUser(ctx context.Context, shopName, userID string) (identity.User, error)
}

type Service struct {
	store     StoreAPI
	works     Works
	directory Directory
	now       func() time.Time
}

func NewService(store StoreAPI, works Works, directory Directory) *Service {
	return &Service{store: store, works: works, directory: directory, now: time.Now}
}

// Create records a transport. A linked order or project must belong to the
// shop, and fixes the client when none is given.
func (s *Service) Create(ctx context.Context, shopName string, in TransportInput) (Transport, error) {
	t := Transport{
		ShopName:         shopName,
		ClientID:         in.ClientID,
		TransporterID:    in.TransporterID,
		PickupLocation:   strings.TrimSpace(in.PickupLocation),
		DeliveryLocation: strings.TrimSpace(in.DeliveryLocation),
		DistanceKm:       in.DistanceKm,
		TransportFee:     in.TransportFee,
		EquipmentList:    in.EquipmentList,
		TransportDate:    in.TransportDate,
		Status:           StatusPending,
		Instructions:     in.Instructions,
		CreatedBy:        in.CreatedBy,
	}
	if t.PickupLocation == "" || t.DeliveryLocation == "" {
		return Transport{}, ErrLocationsRequired
	}
	if t.TransportFee < 0 {
		return Transport{}, ErrInvalidFee
	}
	if t.DistanceKm.IsNegative() {
		return Transport{}, ErrInvalidDistance
	}
	if t.TransportDate.IsZero() {
		t.TransportDate = s.now()
	}
	if in.WorkID != "" || in.WorkType != "" {
		kind, err := work.ParseKind(in.WorkType)
		if err != nil {
			return Transport{}, err
		}
		ref := work.Ref{Kind: kind, ID: in.WorkID}
		item, err := s.works.GetWorkItem(ctx, shopName, ref)
		if err != nil {
			return Transport{}, err
		}
		if t.ClientID == "" {
			t.ClientID = item.ClientID
		} else if t.ClientID != item.ClientID {
			return Transport{}, billing.ErrWorkMismatch
		}
		t.Work = &ref
	}
	if t.TransporterID != "" {
		if err := s.checkTransporter(ctx, shopName, t.TransporterID); err != nil {
			return Transport{}, err
		}
	}
	return s.store.CreateTransport(ctx, t)
}

// List merges recorded transports with the transporter assignments on the
// shop's orders, newest first.
func (s *Service) List(ctx context.Context, shopName string, viewer Viewer) ([]Transport, error) {
	if !viewer.Owner && viewer.UserID == "" {
		return []Transport{}, nil
	}
	filter := TransportFilter{}
	orderFilter := billing.OrderFilter{}
	if !viewer.Owner {
		filter.TransporterID = viewer.UserID
		orderFilter.AssignedTo = viewer.UserID
	}
	recorded, err := s.store.ListTransports(ctx, shopName, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transports: %w", err)
	}
	orders, err := s.works.ListOrders(ctx, shopName, orderFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	out := append([]Transport{}, recorded...)
	for _, o := range orders {
		for _, a := range o.Transporters {
			if !viewer.Owner && a.UserID != viewer.UserID {
				continue
			}
			out = append(out, fromAssignment(o, a))
		}
	}
	slices.SortStableFunc(out, func(a, b Transport) int { return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano()) })
	return out, nil
}

// UpdateStatus moves a recorded transport. Delivery stamps the completion
// time; leaving delivered clears it. Staff may only move their own.
func (s *Service) UpdateStatus(ctx context.Context, shopName, id, status string, viewer Viewer) (Transport, error) {
	if !slices.Contains(Statuses, status) {
		return Transport{}, ErrInvalidStatus
	}
	t, err := s.get(ctx, shopName, id)
	if err != nil {
		return Transport{}, err
	}
	if !viewer.Owner && (viewer.UserID == "" || t.TransporterID != viewer.UserID) {
		return Transport{}, ErrTransportNotFound
	}
	t.Status = status
	t.CompletedAt = nil
	if status == StatusDelivered {
		now := s.now()
		t.CompletedAt = &now
	}
	if err := s.store.SaveTransport(ctx, t); err != nil {
		return Transport{}, err
	}
	return t, nil
}

func (s *Service) Assign(ctx context.Context, shopName, id, transporterID string) (Transport, error) {
	if err := s.checkTransporter(ctx, shopName, transporterID); err != nil {
		return Transport{}, err
	}
	t, err := s.get(ctx, shopName, id)
	if err != nil {
		return Transport{}, err
	}
	t.TransporterID = transporterID
	if err := s.store.SaveTransport(ctx, t); err != nil {
		return Transport{}, err
	}
	return t, nil
}

func (s *Service) get(ctx context.Context, shopName, id string) (Transport, error) {
	if strings.HasPrefix(id, orderTransportPrefix) {
		return Transport{}, ErrDerivedTransport
	}
	return s.store.GetTransport(ctx, shopName, id)
}

func (s *Service) checkTransporter(ctx context.Context, shopName, userID string) error {
	user, err := s.directory.GetUser(ctx, shopName, userID)
	if err != nil {
		return err
	}
	if !identity.CanTransport(user.Role) {
		return ErrNotTransporter
	}
	return nil
}

const orderTransportPrefix = "order-"

func fromAssignment(o billing.Order, a billing.Assignment) Transport {
	ref := o.Ref()
	equipment := make([]string, 0, len(o.Products))
	for _, p := range o.Products {
		equipment = append(equipment, p.Name)
	}
	return Transport{
		ID:               orderTransportPrefix + o.ID + "-" + a.UserID,
		ShopName:         o.ShopName,
		Work:             &ref,
		ClientID:         o.ClientID,
		TransporterID:    a.UserID,
		PickupLocation:   OrderPickup,
		DeliveryLocation: o.Location,
		TransportFee:     a.Payment,
		EquipmentList:    strings.Join(equipment, ", "),
		TransportDate:    o.OrderDate,
		Status:           orderStatus(o.Status),
		Instructions:     "Transport for order " + o.OrderName,
		CompletedAt:      o.CompletionDate,
		CreatedAt:        o.CreatedAt,
		FromOrder:        true,
	}
}

func orderStatus(status string) string {
	switch status {
	case billing.StatusCompleted:
		return StatusDelivered
	case billing.StatusInProgress:
		return StatusInTransit
	default:
		return StatusPending
	}
}
