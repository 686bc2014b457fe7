package models

import "time"

// Role controls access to the admin operations.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is created on the first authenticated request. Role is managed
// out of band and never taken from the caller.
type User struct {
	ID              string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Email           string    `gorm:"type:varchar(255)" json:"email"`
	FirstName       string    `gorm:"type:varchar(255)" json:"firstName"`
	LastName        string    `gorm:"type:varchar(255)" json:"lastName"`
	ProfileImageURL string    `gorm:"type:varchar(1024)" json:"profileImageUrl"`
	Role            Role      `gorm:"type:varchar(20);not null;default:customer" json:"role"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CurrentUser identifies the caller of a service operation.
type CurrentUser struct {
	ID   string
	Role Role
}

func (u CurrentUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SystemUser acts on behalf of internal integrations such as the
// fulfillment event consumer.
var SystemUser = CurrentUser{ID: "system", Role: RoleAdmin}
