package models

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the caller's account role as asserted by the gateway.
type Role string

const (
	RoleCustomer     Role = "customer"
	RoleDesigner     Role = "designer"
	RoleAdmin        Role = "admin"
	RoleFinanceAdmin Role = "finance_admin"
)

// ParseRole maps a header or claim value onto a known role. An empty value
// is treated as a customer, matching the gateway default.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_")))) {
	case "", RoleCustomer, "user":
		return RoleCustomer, true
	case RoleDesigner:
		return RoleDesigner, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleFinanceAdmin, "financeadmin":
		return RoleFinanceAdmin, true
	}
	return "", false
}

// IsModerator reports whether the role may manage comment threads.
func (r Role) IsModerator() bool {
	return r == RoleDesigner || r == RoleAdmin || r == RoleFinanceAdmin
}

// CanManageFinance reports whether the role may apply discounts and refunds.
func (r Role) CanManageFinance() bool {
	return r == RoleAdmin || r == RoleFinanceAdmin
}

// Actor identifies the authenticated caller of an engine operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
	Email  string
}

// Owns reports whether the actor is the order's customer.
func (a Actor) Owns(order *Order) bool {
	return order != nil && a.UserID != uuid.Nil && order.CustomerID == a.UserID
}

// CanAccess reports whether the actor may read or write the order's review threads.
func (a Actor) CanAccess(order *Order) bool {
	return a.Owns(order) || a.Role.IsModerator()
}

// IDPtr returns the actor id for audit columns, nil for system actors.
func (a Actor) IDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
