package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/middleware"
	"github.com/arturoeanton/go-mini-rag/internal/port"
	"github.com/arturoeanton/go-mini-rag/internal/service"
)

var validate = validator.New()

// AuthHandler handles login, logout, and user administration endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterPublic sets up the routes reachable without a token.
func (h *AuthHandler) RegisterPublic(router fiber.Router) {
	router.Post("/auth/login", h.Login)
}

// Register sets up the token-protected auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	auth := router.Group("/auth")
	auth.Post("/logout", h.Logout)
	auth.Get("/me", h.Me)
	auth.Post("/register", adminOnly, h.RegisterUser)
	auth.Get("/users/:username", adminOnly, h.GetUser)
	auth.Put("/users/:username", adminOnly, h.UpdateUser)
	auth.Delete("/users/:username", adminOnly, h.DeleteUser)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues an access token.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body loginRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	token, expiresIn, err := h.auth.Login(body.Username, body.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "incorrect username or password"})
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   expiresIn,
	})
}

// Logout blacklists the presented token.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	h.auth.Logout(middleware.GetToken(c))
	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	user, err := h.auth.GetUser(uc.Username)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(user)
}

type registerRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
	FullName string `json:"full_name"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// RegisterUser creates a new account (admin only).
func (h *AuthHandler) RegisterUser(c fiber.Ctx) error {
	var body registerRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := h.auth.Register(service.RegisterInput{
		Username: body.Username,
		Password: body.Password,
		Email:    body.Email,
		FullName: body.FullName,
		Role:     body.Role,
	})
	if err != nil {
		if errors.Is(err, port.ErrUserExists) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(user)
}

// GetUser returns one account by username (admin only).
func (h *AuthHandler) GetUser(c fiber.Ctx) error {
	user, err := h.auth.GetUser(c.Params("username"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(user)
}

// UpdateUser patches an account (admin only).
func (h *AuthHandler) UpdateUser(c fiber.Ctx) error {
	var patch domain.UserPatch
	if err := c.Bind().JSON(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := h.auth.UpdateUser(c.Params("username"), patch)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(user)
}

// DeleteUser removes an account (admin only).
func (h *AuthHandler) DeleteUser(c fiber.Ctx) error {
	username := c.Params("username")
	if err := h.auth.DeleteUser(username); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(fiber.Map{"message": "User " + username + " deleted successfully"})
}

// adminOnly guards user-administration routes; it runs after the JWT
// middleware has injected the user context.
func adminOnly(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if !uc.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not enough permissions"})
	}
	return c.Next()
}
