package identity

import (
	"context"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Resolve maps verified token claims onto an internal user. The stored user
// decides shop and role; a token naming another shop is rejected.
func (s *Service) Resolve(ctx context.Context, claims Claims) (UserContext, error) {
	var (
		user User
		err  error
	)
	switch {
	case claims.UserID != "":
		user, err = s.store.GetUser(ctx, claims.UserID)
	case claims.Provider != "" && claims.Subject != "":
		user, err = s.store.FindByExternal(ctx, claims.Provider, claims.Subject)
	default:
		return UserContext{}, ErrIncompleteClaims
	}
	if err != nil {
		return UserContext{}, err
	}
	if claims.ShopName != "" && claims.ShopName != user.ShopName {
		return UserContext{}, ErrShopMismatch
	}
	return UserContext{UserID: user.ID, ShopName: user.ShopName, Role: user.Role}, nil
}

func (s *Service) ListUsers(ctx context.Context, shopName string) ([]User, error) {
	return s.store.ListUsers(ctx, shopName)
}

func (s *Service) CreateUser(ctx context.Context, shopName string, in UserInput) (User, error) {
	in.Role = strings.TrimSpace(in.Role)
	if !ValidRole(in.Role) {
		return User{}, ErrInvalidRole
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return s.store.CreateUser(ctx, shopName, in)
}

func (s *Service) LinkIdentity(ctx context.Context, shopName, userID string, in LinkInput) error {
	if _, err := s.GetUser(ctx, shopName, userID); err != nil {
		return err
	}
	return s.store.LinkIdentity(ctx, in.Provider, in.Subject, userID)
}

// GetUser loads a user of shopName; users of other shops read as not found.
func (s *Service) GetUser(ctx context.Context, shopName, userID string) (User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if user.ShopName != shopName {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// Email returns the user's address; it lets notifications mail a copy.
func (s *Service) Email(ctx context.Context, shopName, userID string) (string, error) {
	user, err := s.GetUser(ctx, shopName, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
