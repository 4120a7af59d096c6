package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account row. PasswordHash is nil for accounts created through Google.
type User struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	PasswordHash      *string   `json:"-"`
	Role              string    `json:"role"`
	IsVerified        bool      `json:"isVerified"`
	VerificationToken *string   `json:"-"`
	GoogleID          *string   `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PublicUser is the user shape returned by auth endpoints.
type PublicUser struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Public strips credentials and bookkeeping from u.
func (u *User) Public() PublicUser {
	return PublicUser{Email: u.Email, Username: u.Username, Role: u.Role}
}

// Cart holds a user's cart as the client sent it.
type Cart struct {
	UserID    int64           `json:"userId"`
	Items     json.RawMessage `json:"items"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// LowStockProduct is a product at or below the restock threshold.
type LowStockProduct struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	ItemsInStock int    `json:"itemsInStock"`
}

// AdminStats is the admin dashboard snapshot.
type AdminStats struct {
	TotalUsers        int               `json:"totalUsers"`
	TotalProducts     int               `json:"totalProducts"`
	TotalOrders       int               `json:"totalOrders"`
	OrdersByStatus    []StatusCount     `json:"ordersByStatus"`
	TotalRevenue      decimal.Decimal   `json:"totalRevenue"`
	TotalProductsSold int               `json:"totalProductsSold"`
	LowStockProducts  []LowStockProduct `json:"lowStockProducts"`
}
