package fakebackend

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type meal struct {
	ID           string   `json:"id"`
	RestaurantID string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Tags         []string `json:"tags,omitempty"`
	BasePrice    float64  `json:"base_price"`
	Quantity     int      `json:"quantity"`
	SurplusPrice *float64 `json:"surplus_price,omitempty"`
	Allergens    []string `json:"allergens,omitempty"`
	Calories     *int     `json:"calories,omitempty"`
}

// unitPrice is the surplus price when the meal has one
func (m *meal) unitPrice() float64 {
	if m.SurplusPrice != nil {
		return *m.SurplusPrice
	}
	return m.BasePrice
}

func price(v float64) *float64 { return &v }

func kcal(v int) *int { return &v }

func seedMeals() []*meal {
	return []*meal{
		{ID: "meal-1", RestaurantID: "rest-1", Name: "Lentil Soup", Tags: []string{"vegan", "warm"}, BasePrice: 8, Quantity: 5, SurplusPrice: price(4), Calories: kcal(320)},
		{ID: "meal-2", RestaurantID: "rest-1", Name: "Focaccia", Tags: []string{"vegetarian"}, BasePrice: 5, Quantity: 3, SurplusPrice: price(2.5), Allergens: []string{"gluten"}},
		{ID: "meal-3", RestaurantID: "rest-1", Name: "Tiramisu", Tags: []string{"dessert"}, BasePrice: 6, Quantity: 10, Allergens: []string{"dairy", "egg"}},
		{ID: "meal-4", RestaurantID: "rest-2", Name: "Chicken Curry", Tags: []string{"spicy"}, BasePrice: 12, Quantity: 2, SurplusPrice: price(6), Calories: kcal(640)},
	}
}

// mealByID must be called with mu held
func (s *Server) mealByID(id string) *meal {
	for _, m := range s.meals {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Server) listMeals(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meals := make([]meal, 0, len(s.meals))
	for _, m := range s.meals {
		if m.Quantity > 0 {
			meals = append(meals, *m)
		}
	}
	return c.JSON(http.StatusOK, meals)
}
