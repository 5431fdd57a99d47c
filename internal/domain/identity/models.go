package identity

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrIdentityNotFound = errors.New("external identity not linked")
	ErrInvalidRole      = errors.New("invalid role")
	ErrShopMismatch     = errors.New("token shop does not match user")
	ErrIncompleteClaims = errors.New("token carries no user reference")
	ErrEmailTaken       = errors.New("email is already used in this shop")
)

type User struct {
	ID              string    `json:"id"`
	ShopName        string    `json:"shopName"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	TotalEarnings   int64     `json:"totalEarnings"`
	PaidSalary      int64     `json:"paidSalary"`
	RemainingSalary int64     `json:"remainingSalary"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UserContext is what handlers see of the caller.
type UserContext struct {
	UserID   string
	ShopName string
	Role     string
}

func (u UserContext) IsOwner() bool { return u.Role == RoleOwner }

type UserInput struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required"`
}

type LinkInput struct {
	Provider string `json:"provider" validate:"required,max=100"`
	Subject  string `json:"subject" validate:"required,max=255"`
}
