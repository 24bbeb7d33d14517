package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "7",
		"role": "USER",
		"tv":   2,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}
func (m *userRepoMock) Create(context.Context, *model.User) error { panic("not used in middleware") }
func (m *userRepoMock) FindByEmail(context.Context, string) (*model.User, error) {
	panic("not used in middleware")
}
func (m *userRepoMock) Update(context.Context, *model.User) error { panic("not used in middleware") }
func (m *userRepoMock) IncrementTokenVersion(context.Context, int64) error {
	panic("not used in middleware")
}
func (m *userRepoMock) UpdateRole(context.Context, int64, model.Role) error {
	panic("not used in middleware")
}
func (m *userRepoMock) List(context.Context, int, int) ([]model.User, int64, error) {
	panic("not used in middleware")
}

var _ repository.UserRepository = (*userRepoMock)(nil)

// contextに入った値をそのまま返す
func echoClaims(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id": c.Get(CtxUserIDKey),
		"role":    c.Get(CtxUserRoleKey),
	})
}

func serve(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWT(t *testing.T) {
	e := echo.New()
	e.GET("/", echoClaims, AuthJWT(testSecret))

	t.Run("valid", func(t *testing.T) {
		rec := serve(e, signToken(t, testSecret, validClaims()))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":7,"role":"USER"}`, rec.Body.String())
	})
	t.Run("missing header", func(t *testing.T) {
		rec := serve(e, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	})
	t.Run("wrong secret", func(t *testing.T) {
		rec := serve(e, signToken(t, "other", validClaims()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c["exp"] = time.Now().Add(-time.Minute).Unix()
		rec := serve(e, signToken(t, testSecret, c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("missing tv", func(t *testing.T) {
		c := validClaims()
		delete(c, "tv")
		rec := serve(e, signToken(t, testSecret, c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalAuthJWT(t *testing.T) {
	e := echo.New()
	e.GET("/", echoClaims, OptionalAuthJWT(testSecret))

	rec := serve(e, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":null,"role":null}`, rec.Body.String())

	rec = serve(e, signToken(t, testSecret, validClaims()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"USER"}`, rec.Body.String())

	rec = serve(e, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenVersionGuard(t *testing.T) {
	repo := new(userRepoMock)
	e := echo.New()
	e.GET("/", echoClaims, AuthJWT(testSecret), TokenVersionGuard(repo))

	t.Run("matching version uses role from db", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, int64(7)).
			Return(&model.User{ID: 7, Role: model.RoleAdmin, TokenVersion: 2, IsActive: true}, nil).Once()
		rec := serve(e, signToken(t, testSecret, validClaims()))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":7,"role":"ADMIN"}`, rec.Body.String())
	})
	t.Run("forced logout", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, int64(7)).
			Return(&model.User{ID: 7, Role: model.RoleUser, TokenVersion: 3, IsActive: true}, nil).Once()
		rec := serve(e, signToken(t, testSecret, validClaims()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("inactive user", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, int64(7)).
			Return(&model.User{ID: 7, Role: model.RoleUser, TokenVersion: 2, IsActive: false}, nil).Once()
		rec := serve(e, signToken(t, testSecret, validClaims()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("unknown user", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound).Once()
		rec := serve(e, signToken(t, testSecret, validClaims()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	repo.AssertExpectations(t)
}

func TestAdminRoleGuard(t *testing.T) {
	e := echo.New()
	e.GET("/", echoClaims, AuthJWT(testSecret), AdminRoleGuard())

	rec := serve(e, signToken(t, testSecret, validClaims()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"admin only"}`, rec.Body.String())

	c := validClaims()
	c["role"] = "ADMIN"
	rec = serve(e, signToken(t, testSecret, c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFormatter(&log.JSONFormatter{})
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/missing/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing/3", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"route":"/missing/:id"`)
	assert.Contains(t, out, `"level":"warning"`)
}
