package fakebackend

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

type loginResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// AddUser registers an account directly, bypassing /auth/signup
func (s *Server) AddUser(email, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, name)
}

func (s *Server) addUserLocked(email, password, name string) string {
	u := &user{
		ID:       uuid.NewString(),
		Email:    strings.ToLower(email),
		Password: password,
		Name:     name,
		Role:     "customer",
	}
	s.users[u.Email] = u
	return u.ID
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.ToLower(req.Email)]
	if !ok || u.Password != req.Password {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	}

	access, err := s.tokens.issue(u.ID)
	if err != nil {
		return err
	}
	refresh := s.grantLocked(u.ID)

	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: refresh,
		User:         userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

func (s *Server) signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[strings.ToLower(req.Email)]; exists {
		return echo.NewHTTPError(http.StatusBadRequest, "User already registered")
	}
	id := s.addUserLocked(req.Email, req.Password, req.Name)

	return c.JSON(http.StatusOK, userResponse{ID: id, Email: strings.ToLower(req.Email), Name: req.Name})
}

func (s *Server) refresh(c echo.Context) error {
	s.refreshCalls.Add(1)

	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.options.RejectRefresh {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh failed")
	}

	grant, ok := s.grants[req.RefreshToken]
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Refresh Token: Refresh Token Not Found")
	}
	if grant.Used {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Refresh Token: Already Used")
	}
	if s.userByID(grant.UserID) == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
	}

	access, err := s.tokens.issue(grant.UserID)
	if err != nil {
		return err
	}

	resp := refreshResponse{AccessToken: access, TokenType: "bearer"}
	if s.options.RotateRefreshTokens {
		grant.Used = true
		resp.RefreshToken = s.grantLocked(grant.UserID)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) logout(c echo.Context) error {
	u := currentUser(c)

	s.mu.Lock()
	s.revokeGrantsLocked(u.ID)
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) deleteAccount(c echo.Context) error {
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revokeGrantsLocked(u.ID)
	delete(s.carts, u.ID)
	delete(s.users, u.Email)

	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// grantLocked issues a refresh token for userID
func (s *Server) grantLocked(userID string) string {
	token := uuid.NewString()
	s.grants[token] = &refreshGrant{UserID: userID}
	return token
}

func (s *Server) revokeGrantsLocked(userID string) {
	for token, grant := range s.grants {
		if grant.UserID == userID {
			delete(s.grants, token)
		}
	}
}
