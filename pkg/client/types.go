package client

// User is the profile returned by the backend at login
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response from signing in
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// SignupRequest represents the request body for creating an account
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ProfileUpdate represents the editable profile fields
type ProfileUpdate struct {
	Name string `json:"name"`
}

// Meal is a catalog entry. SurplusPrice is set for discounted surplus meals.
type Meal struct {
	ID           string   `json:"id"`
	RestaurantID string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Tags         []string `json:"tags,omitempty"`
	BasePrice    float64  `json:"base_price"`
	Quantity     int      `json:"quantity"`
	SurplusPrice *float64 `json:"surplus_price,omitempty"`
	Allergens    []string `json:"allergens,omitempty"`
	Calories     *int     `json:"calories,omitempty"`
	ImageLink    string   `json:"image_link,omitempty"`
}

// CartItem is one line of the cart priced at the current meal price
type CartItem struct {
	ItemID       string  `json:"item_id"`
	MealID       string  `json:"meal_id"`
	MealName     string  `json:"meal_name"`
	RestaurantID string  `json:"restaurant_id"`
	Qty          int     `json:"qty"`
	UnitPrice    float64 `json:"unit_price"`
	LineTotal    float64 `json:"line_total"`
	SurplusLeft  int     `json:"surplus_left"`
}

// Cart represents the signed-in user's cart
type Cart struct {
	CartID    string     `json:"cart_id"`
	Items     []CartItem `json:"items"`
	CartTotal float64    `json:"cart_total"`
}

// AddToCartRequest represents the request body for adding a meal
type AddToCartRequest struct {
	MealID string `json:"meal_id"`
	Qty    int    `json:"qty"`
}

// CheckoutResponse represents the order created from the cart
type CheckoutResponse struct {
	OrderID string  `json:"order_id"`
	Status  string  `json:"status"`
	Total   float64 `json:"total"`
}

// OrderSummary is an entry of the order history
type OrderSummary struct {
	ID             string  `json:"id"`
	RestaurantID   string  `json:"restaurant_id"`
	RestaurantName string  `json:"restaurant_name,omitempty"`
	Status         string  `json:"status"`
	Total          float64 `json:"total"`
	CreatedAt      string  `json:"created_at"`
}

// Order is the header of an order detail
type Order struct {
	OrderSummary
	UserID string `json:"user_id"`
}

// OrderItem is one line of an order
type OrderItem struct {
	ID       string  `json:"id"`
	MealID   string  `json:"meal_id"`
	MealName string  `json:"meal_name"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"price"`
}

// OrderDetails represents the response from fetching one order
type OrderDetails struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// Order statuses
const (
	OrderPending   = "pending"
	OrderAccepted  = "accepted"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// IsFinalStatus reports whether an order in status can no longer change
func IsFinalStatus(status string) bool {
	return status == OrderCompleted || status == OrderCancelled
}

// StatusEvent is one status change of an order
type StatusEvent struct {
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// OrderTimeline represents the status history of an order
type OrderTimeline struct {
	OrderID  string        `json:"order_id"`
	Timeline []StatusEvent `json:"timeline"`
}

// Current returns the latest status, or "" when the timeline is empty
func (t *OrderTimeline) Current() string {
	if len(t.Timeline) == 0 {
		return ""
	}
	return t.Timeline[len(t.Timeline)-1].Status
}

// CancelResponse represents the response from cancelling an order
type CancelResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
}
