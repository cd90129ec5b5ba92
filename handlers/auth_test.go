package handlers

import (
	"context"
	"net/http"
	"testing"

	"postboard/apperrors"
	"postboard/auth"
	"postboard/logging"
	"postboard/middleware"
	"postboard/mocks"
	"postboard/models"
	"postboard/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

func newAccountRouter(t *testing.T) (*gin.Engine, *mocks.MockUserRepository, *auth.TokenService) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	tokens, err := auth.NewTokenService("account-handler-secret", 0)
	require.NoError(t, err)

	h := NewAccountHandler(services.NewAccountService(users, tokens))
	router := gin.New()
	router.Use(middleware.ErrorHandler(logging.Discard(), false))
	router.POST("/api/register", h.Register)
	router.POST("/api/token", h.Token)
	return router, users, tokens
}

func TestAccountHandler_Register(t *testing.T) {
	t.Run("should create the account and sign in", func(t *testing.T) {
		req := require.New(t)
		router, users, tokens := newAccountRouter(t)
		users.EXPECT().
			Create(gomock.Any(), "alice", gomock.Any()).
			DoAndReturn(func(_ context.Context, username, hash string) (*models.User, error) {
				return &models.User{ID: primitive.NewObjectID(), Username: username, PasswordHash: hash}, nil
			})

		rec := post(router, "/api/register", `{"username":"alice","password":"secret1"}`)

		req.Equal(http.StatusCreated, rec.Code)
		body := jsonBody(t, rec)
		req.Equal("alice", body["user"].(map[string]any)["username"])
		identity, err := tokens.Verify(body["token"].(string))
		req.NoError(err)
		req.Equal("alice", identity.Username)
	})

	t.Run("should explain validation failures", func(t *testing.T) {
		router, users, _ := newAccountRouter(t)
		users.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rec := post(router, "/api/register", `{"username":"alice","password":"123"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Password: must be at least 6 characters", jsonBody(t, rec)["message"])
	})

	t.Run("should map taken usernames to the envelope", func(t *testing.T) {
		router, users, _ := newAccountRouter(t)
		dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
		users.EXPECT().Create(gomock.Any(), "alice", gomock.Any()).Return(nil, apperrors.Storage("insert user", dup))

		rec := post(router, "/api/register", `{"username":"alice","password":"secret1"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Duplicate field value", jsonBody(t, rec)["message"])
	})
}

func TestAccountHandler_Token(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &models.User{ID: primitive.NewObjectID(), Username: "alice", PasswordHash: string(hash)}

	t.Run("should issue a token", func(t *testing.T) {
		router, users, _ := newAccountRouter(t)
		users.EXPECT().FindByUsername(gomock.Any(), "alice").Return(stored, nil)

		rec := post(router, "/api/token", `{"username":"alice","password":"secret1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		body := jsonBody(t, rec)
		require.NotEmpty(t, body["token"])
		require.NotEmpty(t, body["expiresAt"])
	})

	t.Run("should refuse a wrong password", func(t *testing.T) {
		router, users, _ := newAccountRouter(t)
		users.EXPECT().FindByUsername(gomock.Any(), "alice").Return(stored, nil)

		rec := post(router, "/api/token", `{"username":"alice","password":"nope"}`)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Invalid credentials", jsonBody(t, rec)["message"])
	})
}
