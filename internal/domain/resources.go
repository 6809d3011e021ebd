package domain

import "time"

// Order status constants as reported by the commerce backend.
const (
	OrderStatusPlaced    = "placed"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPacked    = "packed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCanceled  = "canceled"
	OrderStatusReturned  = "returned"
)

// ValidOrderStatuses returns all order statuses the console may set.
func ValidOrderStatuses() []string {
	return []string{
		OrderStatusPlaced,
		OrderStatusConfirmed,
		OrderStatusPacked,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCanceled,
		OrderStatusReturned,
	}
}

// IsValidOrderStatus checks if a status string is valid.
func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Order is a back-office view of a customer order.
type Order struct {
	ID           string    `json:"id"`
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status"`
	ItemCount    int       `json:"item_count"`
	TotalAmount  int64     `json:"total_amount"`
	Currency     string    `json:"currency"`
	PlacedAt     time.Time `json:"placed_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Product is a catalog product as managed by the console.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CategoryID  string    `json:"category_id"`
	BasePrice   int64     `json:"base_price"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups products in the catalog.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ImageURL  string    `json:"image_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Variant is a sellable variation of a product (size, color, pack).
type Variant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	Active    bool   `json:"active"`
}

// Offer is a time-bound discount attached to a product or category.
type Offer struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ProductID   string    `json:"product_id,omitempty"`
	CategoryID  string    `json:"category_id,omitempty"`
	DiscountPct float64   `json:"discount_pct"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Active      bool      `json:"active"`
}

// Customer is a read-only storefront account summary.
type Customer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	OrderCount int       `json:"order_count"`
	JoinedAt   time.Time `json:"joined_at"`
}

// Review moderation states.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// Review is a product review awaiting or past moderation.
type Review struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	CustomerName string    `json:"customer_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Contact is a storefront contact-form submission.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings holds the store-wide knobs the console can edit.
type Settings struct {
	GSTRate       float64   `json:"gst_rate"`
	CourierCharge float64   `json:"courier_charge"`
	StoreName     string    `json:"store_name,omitempty"`
	SupportEmail  string    `json:"support_email,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
