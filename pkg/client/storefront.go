package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultOrderLimit is the number of orders GetMyOrders asks for by default
const DefaultOrderLimit = 50

// ListMeals returns the catalog
func (c *Client) ListMeals(ctx context.Context) ([]Meal, error) {
	var meals []Meal
	if err := c.call(ctx, http.MethodGet, "/catalog/meals", nil, nil, &meals, "failed to fetch meals"); err != nil {
		return nil, err
	}
	return meals, nil
}

// GetCart returns the signed-in user's cart
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.call(ctx, http.MethodGet, "/cart", nil, nil, &cart, "failed to fetch cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds qty of a meal to the cart. A qty below 1 adds one.
func (c *Client) AddToCart(ctx context.Context, mealID string, qty int) (*Cart, error) {
	if mealID == "" {
		return nil, errors.New("meal id is required")
	}
	if qty < 1 {
		qty = 1
	}

	var cart Cart
	req := AddToCartRequest{MealID: mealID, Qty: qty}
	if err := c.call(ctx, http.MethodPost, "/cart/items", nil, req, &cart, "failed to add to cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateCartItem sets the quantity of a cart line
func (c *Client) UpdateCartItem(ctx context.Context, itemID string, qty int) (*Cart, error) {
	if itemID == "" {
		return nil, errors.New("item id is required")
	}
	if qty < 1 {
		return nil, errors.New("quantity must be positive")
	}

	query := url.Values{"qty": []string{strconv.Itoa(qty)}}
	var cart Cart
	if err := c.call(ctx, http.MethodPatch, "/cart/items/"+url.PathEscape(itemID), query, nil, &cart, "failed to update cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveFromCart removes a cart line
func (c *Client) RemoveFromCart(ctx context.Context, itemID string) (*Cart, error) {
	if itemID == "" {
		return nil, errors.New("item id is required")
	}

	var cart Cart
	if err := c.call(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil, nil, &cart, "failed to remove from cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearCart empties the cart
func (c *Client) ClearCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.call(ctx, http.MethodDelete, "/cart", nil, nil, &cart, "failed to clear cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Checkout turns the cart into an order
func (c *Client) Checkout(ctx context.Context) (*CheckoutResponse, error) {
	var result CheckoutResponse
	if err := c.call(ctx, http.MethodPost, "/cart/checkout", nil, nil, &result, "checkout failed"); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMyOrders returns the signed-in user's most recent orders.
// A limit below 1 uses DefaultOrderLimit.
func (c *Client) GetMyOrders(ctx context.Context, limit int) ([]OrderSummary, error) {
	if limit < 1 {
		limit = DefaultOrderLimit
	}

	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	orders := []OrderSummary{}
	if err := c.call(ctx, http.MethodGet, "/orders/mine", query, nil, &orders, "failed to fetch orders"); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one order with its items
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderDetails, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}

	var details OrderDetails
	if err := c.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &details, "failed to fetch order"); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetOrderStatus returns the status history of an order
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*OrderTimeline, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}

	var timeline OrderTimeline
	if err := c.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/status", nil, nil, &timeline, "failed to fetch order status"); err != nil {
		return nil, err
	}
	return &timeline, nil
}

// CancelOrder cancels a pending order
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}

	var result CancelResponse
	if err := c.call(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/cancel", nil, nil, &result, "failed to cancel order"); err != nil {
		return nil, err
	}
	return &result, nil
}
