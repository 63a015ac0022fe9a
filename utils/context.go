// marketplace/utils/context.go
package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
)

// Context keys set by the auth middleware.
const (
	ContextUserID   = "sub"
	ContextEmail    = "email"
	ContextRole     = "role"
	ContextSellerID = "seller_id"
)

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// CurrentUser is the authenticated actor of a request.
type CurrentUser struct {
	ID       string
	Email    string
	Role     string
	SellerID uuid.UUID
}

// IsAdmin reports whether the user may use the back-office endpoints.
func (u *CurrentUser) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Actor is the name stamped on audit notes.
func (u *CurrentUser) Actor() string {
	if u == nil {
		return ""
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// GetCurrentUser returns the identity placed in the context by the auth
// middleware, or nil when the request is anonymous.
func GetCurrentUser(c *gin.Context) *CurrentUser {
	id := c.GetString(ContextUserID)
	if id == "" {
		return nil
	}

	user := &CurrentUser{
		ID:    id,
		Email: c.GetString(ContextEmail),
		Role:  c.GetString(ContextRole),
	}

	if raw := c.GetString(ContextSellerID); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			logger.WarnLogger.Warnf("Ignoring malformed seller_id claim %q: %v", raw, err)
		} else {
			user.SellerID = sellerID
		}
	}
	return user
}

// GetSellerIDFromContext returns the seller the current user acts for.
func GetSellerIDFromContext(c *gin.Context) (uuid.UUID, error) {
	user := GetCurrentUser(c)
	if user == nil {
		logger.ErrorLogger.Error("User ID not found in context.")
		return uuid.Nil, ErrUserIDNotFound
	}
	if user.SellerID == uuid.Nil {
		return uuid.Nil, ErrForbidden
	}
	return user.SellerID, nil
}
