package logistics

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"shopledger/internal/domain/work"
)

const (
	StatusPending   = "pending"
	StatusInTransit = "in_transit"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var Statuses = []string{StatusPending, StatusInTransit, StatusDelivered, StatusCancelled}

// OrderPickup is where transports derived from order assignments start.
const OrderPickup = "Shop"

var (
	ErrTransportNotFound = errors.New("transport record not found")
	ErrInvalidStatus     = errors.New("invalid transport status")
	ErrInvalidFee        = errors.New("transport fee cannot be negative")
	ErrInvalidDistance   = errors.New("distance cannot be negative")
	ErrLocationsRequired = errors.New("pickup and delivery locations are required")
	ErrNotTransporter    = errors.New("user is not a transporter")
	ErrDerivedTransport  = errors.New("order transports change with their order")
)

// Transport moves equipment for a shop. Records created directly carry a
// uuid; those derived from an order's transporter assignments are read-only
// and marked FromOrder.
type Transport struct {
	ID               string          `json:"id"`
	ShopName         string          `json:"shopName"`
	Work             *work.Ref       `json:"work,omitempty"`
	ClientID         string          `json:"clientId,omitempty"`
	TransporterID    string          `json:"transporterId,omitempty"`
	PickupLocation   string          `json:"pickupLocation"`
	DeliveryLocation string          `json:"deliveryLocation"`
	DistanceKm       decimal.Decimal `json:"distanceKm"`
	TransportFee     int64           `json:"transportFee"`
	EquipmentList    string          `json:"equipmentList"`
	TransportDate    time.Time       `json:"transportDate"`
	Status           string          `json:"status"`
	Instructions     string          `json:"instructions"`
	CreatedBy        string          `json:"createdBy,omitempty"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	FromOrder        bool            `json:"fromOrder"`
}

type TransportInput struct {
	WorkID           string          `json:"workId" validate:"omitempty,uuid"`
	WorkType         string          `json:"workType"`
	ClientID         string          `json:"clientId" validate:"omitempty,uuid"`
	TransporterID    string          `json:"transporterId" validate:"omitempty,uuid"`
	PickupLocation   string          `json:"pickupLocation" validate:"required,max=300"`
	DeliveryLocation string          `json:"deliveryLocation" validate:"required,max=300"`
	DistanceKm       decimal.Decimal `json:"distanceKm"`
	TransportFee     int64           `json:"transportFee" validate:"gte=0"`
	EquipmentList    string          `json:"equipmentList" validate:"max=2000"`
	TransportDate    time.Time       `json:"transportDate"`
	Instructions     string          `json:"instructions" validate:"max=2000"`
	CreatedBy        string          `json:"-"`
}

type TransportFilter struct {
	TransporterID string
}

// Viewer decides which transports are listed: owners see the shop, everyone
// else the transports assigned to them.
type Viewer struct {
	UserID string
	Owner  bool
}
