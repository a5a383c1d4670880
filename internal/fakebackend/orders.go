package fakebackend

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Order statuses, in the order a restaurant moves through them
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var restaurantNames = map[string]string{
	"rest-1": "Green Bowl",
	"rest-2": "Spice Route",
}

type orderLine struct {
	ID       string  `json:"id"`
	MealID   string  `json:"meal_id"`
	MealName string  `json:"meal_name"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"price"`
}

type statusEvent struct {
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type order struct {
	ID           string
	UserID       string
	RestaurantID string
	Total        float64
	CreatedAt    time.Time
	Lines        []orderLine
	Timeline     []statusEvent
}

func (o *order) status() string {
	return o.Timeline[len(o.Timeline)-1].Status
}

func (o *order) addEvent(status string) {
	o.Timeline = append(o.Timeline, statusEvent{Status: status, CreatedAt: time.Now().UTC().Format(time.RFC3339)})
}

type orderSummary struct {
	ID             string  `json:"id"`
	RestaurantID   string  `json:"restaurant_id"`
	RestaurantName string  `json:"restaurant_name,omitempty"`
	Status         string  `json:"status"`
	Total          float64 `json:"total"`
	CreatedAt      string  `json:"created_at"`
}

type orderPayload struct {
	orderSummary
	UserID string `json:"user_id"`
}

func (o *order) summary() orderSummary {
	return orderSummary{
		ID:             o.ID,
		RestaurantID:   o.RestaurantID,
		RestaurantName: restaurantNames[o.RestaurantID],
		Status:         o.status(),
		Total:          o.Total,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// orderByID must be called with mu held
func (s *Server) orderByID(id string) *order {
	for _, o := range s.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (s *Server) checkout(c echo.Context) error {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	ct := s.cartFor(u.ID)
	if len(ct.Lines) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	var restaurantID string
	for _, line := range ct.Lines {
		m := s.mealByID(line.MealID)
		if m == nil {
			return echo.NewHTTPError(http.StatusNotFound, "meal not found")
		}
		if restaurantID != "" && m.RestaurantID != restaurantID {
			return echo.NewHTTPError(http.StatusBadRequest, "cart contains items from multiple restaurants")
		}
		restaurantID = m.RestaurantID
		if line.Qty > m.Quantity {
			return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("only %d left for this item", m.Quantity))
		}
	}

	s.orderID++
	o := &order{
		ID:           strconv.Itoa(s.orderID),
		UserID:       u.ID,
		RestaurantID: restaurantID,
		CreatedAt:    time.Now(),
	}
	for i, line := range ct.Lines {
		m := s.mealByID(line.MealID)
		m.Quantity -= line.Qty
		unit := m.unitPrice()
		o.Lines = append(o.Lines, orderLine{
			ID:       strconv.Itoa(i + 1),
			MealID:   m.ID,
			MealName: m.Name,
			Qty:      line.Qty,
			Price:    unit,
		})
		o.Total += unit * float64(line.Qty)
	}
	o.addEvent(StatusPending)
	s.orders = append(s.orders, o)
	ct.Lines = nil

	return c.JSON(http.StatusOK, map[string]any{
		"order_id": o.ID,
		"status":   o.status(),
		"total":    o.Total,
	})
}

func (s *Server) myOrders(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	// newest first
	out := []orderSummary{}
	for i := len(s.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if o := s.orders[i]; o.UserID == u.ID {
			out = append(out, o.summary())
		}
	}
	return c.JSON(http.StatusOK, out)
}

// ownOrder looks up an order owned by the current user. Must be called with mu held.
func (s *Server) ownOrder(c echo.Context) (*order, error) {
	o := s.orderByID(c.Param("id"))
	if o == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if o.UserID != currentUser(c).ID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not your order")
	}
	return o, nil
}

func (s *Server) getOrder(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.ownOrder(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"order": orderPayload{orderSummary: o.summary(), UserID: o.UserID},
		"items": o.Lines,
	})
}

func (s *Server) orderStatus(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.ownOrder(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"order_id": o.ID,
		"timeline": o.Timeline,
	})
}

func (s *Server) cancelOrder(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.ownOrder(c)
	if err != nil {
		return err
	}
	if o.status() != StatusPending {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot cancel after it is accepted")
	}

	for _, line := range o.Lines {
		if m := s.mealByID(line.MealID); m != nil {
			m.Quantity += line.Qty
		}
	}
	o.addEvent(StatusCancelled)

	return c.JSON(http.StatusOK, map[string]string{
		"status":   StatusCancelled,
		"order_id": o.ID,
	})
}

// AdvanceOrder appends a status change to an order, the way a restaurant
// accepting or completing it would
func (s *Server) AdvanceOrder(orderID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.orderByID(orderID)
	if o == nil {
		return fmt.Errorf("order %s not found", orderID)
	}
	o.addEvent(status)
	return nil
}
