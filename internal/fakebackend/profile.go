package fakebackend

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type profileUpdate struct {
	Name string `json:"name"`
}

func (s *Server) getProfile(c echo.Context) error {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role})
}

// updateProfile changes the display name, the only editable field
func (s *Server) updateProfile(c echo.Context) error {
	var req profileUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}

	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	u.Name = name
	return c.JSON(http.StatusOK, userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role})
}
