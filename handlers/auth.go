package handlers

import (
	"context"
	"errors"
	"net/http"

	"postboard/apperrors"
	"postboard/services"
	"postboard/validation"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) Register(c *gin.Context) {
	var creds validation.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	session, err := h.accounts.Register(ctx, creds)
	if err != nil {
		if apperrors.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"message": validationMessage(err)})
			return
		}
		// duplicate usernames are mapped by the error middleware
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": session.Token, "user": session.User})
}

// Token exchanges a username and password for a bearer token.
func (h *AccountHandler) Token(c *gin.Context) {
	var creds validation.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	session, err := h.accounts.Authenticate(ctx, creds)
	if errors.Is(err, apperrors.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": session.Token, "expiresAt": session.ExpiresAt})
}

func validationMessage(err error) string {
	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	return err.Error()
}
