package auth

import "context"

// Role determines which API surface a key may use.
type Role string

const (
	// RoleCustomer keys place, track, cancel, and review their own orders.
	RoleCustomer Role = "customer"
	// RoleStaff keys drive order status and manage the inventory catalog.
	RoleStaff Role = "staff"
)

// Identity holds the verified caller data for a validated API key. ID is
// the stable subject identifier used as the order owner.
type Identity struct {
	ID      string
	KeyHash string
	Name    string
	Role    Role
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Identity, error)
}
