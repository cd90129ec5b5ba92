package handlers

import (
	"log/slog"
	"net/http"

	"postboard/validation"

	"github.com/gin-gonic/gin"
)

// Fixed demo credentials accepted by POST /api/login. Real tokens come from
// /api/register and /api/token.
const (
	demoUsername = "testuser"
	demoPassword = "password"
)

type DemoHandler struct {
	logger *slog.Logger
}

func NewDemoHandler(logger *slog.Logger) *DemoHandler {
	return &DemoHandler{logger: logger}
}

func (h *DemoHandler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello, world!"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *DemoHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username != demoUsername || req.Password != demoPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

func (h *DemoHandler) Contact(c *gin.Context) {
	var form validation.ContactForm
	// An unreadable body is treated like an empty form.
	_ = c.ShouldBindJSON(&form)

	if err := validation.ValidateContactForm(form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": validationMessage(err)})
		return
	}

	h.logger.Info("contact form submitted", "name", form.Name, "email", form.Email)
	c.JSON(http.StatusOK, gin.H{"message": "Form submitted successfully"})
}
