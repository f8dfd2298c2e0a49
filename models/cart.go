package models

import "time"

// Cart belongs to exactly one authenticated user. Guests never get a cart.
type Cart struct {
	ID          int64      `json:"id"`
	OwnerUserID string     `json:"userId"`
	Items       []CartItem `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CartItem is unique per (CartID, ProductID); repeated adds increase Quantity.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cartId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
