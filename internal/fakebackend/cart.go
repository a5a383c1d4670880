package fakebackend

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type cartLine struct {
	ID     string
	MealID string
	Qty    int
}

type cart struct {
	ID    string
	Lines []*cartLine
}

type cartItemResponse struct {
	ItemID       string  `json:"item_id"`
	MealID       string  `json:"meal_id"`
	MealName     string  `json:"meal_name"`
	RestaurantID string  `json:"restaurant_id"`
	Qty          int     `json:"qty"`
	UnitPrice    float64 `json:"unit_price"`
	LineTotal    float64 `json:"line_total"`
	SurplusLeft  int     `json:"surplus_left"`
}

type cartResponse struct {
	CartID    string             `json:"cart_id"`
	Items     []cartItemResponse `json:"items"`
	CartTotal float64            `json:"cart_total"`
}

type addItemRequest struct {
	MealID string `json:"meal_id"`
	Qty    int    `json:"qty"`
}

// cartFor must be called with mu held
func (s *Server) cartFor(userID string) *cart {
	ct, ok := s.carts[userID]
	if !ok {
		ct = &cart{ID: uuid.NewString()}
		s.carts[userID] = ct
	}
	return ct
}

// cartPayload prices the cart at current meal prices. Must be called with mu held.
func (s *Server) cartPayload(ct *cart) cartResponse {
	resp := cartResponse{CartID: ct.ID, Items: []cartItemResponse{}}
	for _, line := range ct.Lines {
		m := s.mealByID(line.MealID)
		if m == nil {
			continue
		}
		unit := m.unitPrice()
		item := cartItemResponse{
			ItemID:       line.ID,
			MealID:       m.ID,
			MealName:     m.Name,
			RestaurantID: m.RestaurantID,
			Qty:          line.Qty,
			UnitPrice:    unit,
			LineTotal:    unit * float64(line.Qty),
			SurplusLeft:  m.Quantity,
		}
		resp.Items = append(resp.Items, item)
		resp.CartTotal += item.LineTotal
	}
	return resp
}

func (s *Server) getCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.cartPayload(s.cartFor(currentUser(c).ID)))
}

func (s *Server) addCartItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MealID == "" || req.Qty <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "meal_id and positive qty required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.mealByID(req.MealID)
	if m == nil {
		return echo.NewHTTPError(http.StatusNotFound, "meal not found")
	}

	ct := s.cartFor(currentUser(c).ID)
	var existing *cartLine
	for _, line := range ct.Lines {
		if line.MealID == req.MealID {
			existing = line
		}
	}

	newQty := req.Qty
	if existing != nil {
		newQty += existing.Qty
	}
	if newQty > m.Quantity {
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("only %d left for this item", m.Quantity))
	}

	if existing != nil {
		existing.Qty = newQty
	} else {
		ct.Lines = append(ct.Lines, &cartLine{ID: uuid.NewString(), MealID: req.MealID, Qty: newQty})
	}
	return c.JSON(http.StatusOK, s.cartPayload(ct))
}

func (s *Server) updateCartItem(c echo.Context) error {
	qty, err := strconv.Atoi(c.QueryParam("qty"))
	if err != nil || qty <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "qty must be a positive integer")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ct := s.cartFor(currentUser(c).ID)
	for _, line := range ct.Lines {
		if line.ID != c.Param("id") {
			continue
		}
		if m := s.mealByID(line.MealID); m != nil && qty > m.Quantity {
			return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("only %d left for this item", m.Quantity))
		}
		line.Qty = qty
		return c.JSON(http.StatusOK, s.cartPayload(ct))
	}
	return echo.NewHTTPError(http.StatusNotFound, "item not found")
}

func (s *Server) removeCartItem(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct := s.cartFor(currentUser(c).ID)
	lines := ct.Lines[:0]
	for _, line := range ct.Lines {
		if line.ID != c.Param("id") {
			lines = append(lines, line)
		}
	}
	ct.Lines = lines
	return c.JSON(http.StatusOK, s.cartPayload(ct))
}

func (s *Server) clearCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct := s.cartFor(currentUser(c).ID)
	ct.Lines = nil
	return c.JSON(http.StatusOK, s.cartPayload(ct))
}
