package catalog

import (
	"errors"
	"time"
)

const (
	TypeQuantity = "quantity"
	TypeSize     = "size"
)

var Types = []string{TypeQuantity, TypeSize}

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("product already exists")
	ErrInvalidType      = errors.New("product type must be quantity or size")
	ErrNameRequired     = errors.New("product name is required")
)

// Product is an item a shop rents out. Size products are priced by area,
// quantity products by count.
type Product struct {
	ID        string    `json:"id"`
	ShopName  string    `json:"shopName"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProductInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Type string `json:"type" validate:"omitempty,oneof=quantity size"`
}

// ProductUpdate changes only the fields that are set.
type ProductUpdate struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Type   *string `json:"type" validate:"omitempty,oneof=quantity size"`
	Active *bool   `json:"active"`
}

type InitResult struct {
	Created  int       `json:"created"`
	Products []Product `json:"products"`
}

// Defaults is the starter catalog a new shop can load.
var Defaults = []ProductInput{
	{Name: "LED", Type: TypeSize},
	{Name: "Mixer", Type: TypeQuantity},
	{Name: "Plasma", Type: TypeQuantity},
	{Name: "Drone", Type: TypeQuantity},
	{Name: "Camera", Type: TypeQuantity},
	{Name: "LED Flooring", Type: TypeSize},
	{Name: "Wireless", Type: TypeQuantity},
	{Name: "Youtube Live", Type: TypeQuantity},
}
