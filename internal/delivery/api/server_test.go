package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"accounts/config"
	"accounts/internal/delivery/api/middleware"
	"accounts/internal/delivery/api/response"
	"accounts/internal/delivery/api/router"
	"accounts/internal/delivery/api/router/handler"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	mockUC "accounts/internal/mocks/usecase"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorInfo `json:"error"`
	Meta  *response.MetaInfo  `json:"meta"`
}

var (
	alice = &entity.User{ID: 1, Username: "alice", Email: "a@x.com", PasswordHash: "$2a$04$secret", IsActive: true}
	admin = &entity.User{ID: 9, Username: "root", Email: "root@x.com", PasswordHash: "$2a$04$root", IsActive: true, IsSuperuser: true}
)

func newTestAPI(t *testing.T) (*echo.Echo, *mockUC.MockUserUsecase) {
	t.Helper()

	cfg := &config.Config{}
	cfg.HTTP.MaxRequestBodySize = "1K"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := mockUC.NewMockUserUsecase(t)

	e := NewEcho(cfg, logger, router.RouterParams{
		AuthHandler:    handler.NewAuthHandler(handler.AuthHandlerParams{UserUC: uc, Logger: logger}),
		UserHandler:    handler.NewUserHandler(handler.UserHandlerParams{UserUC: uc, Logger: logger}),
		AuthMiddleware: middleware.NewAuthMiddleware(uc),
	})

	return e, uc
}

func authenticateAs(uc *mockUC.MockUserUsecase, token string, user *entity.User) {
	uc.EXPECT().Authenticate(mock.Anything, token).Return(user, nil)
}

func doRequest(e *echo.Echo, method, target, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return env
}

func TestHealth(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	env := decode(t, rec)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
	assert.Equal(t, rec.Header().Get("X-Request-Id"), env.Meta.RequestID)
}

func TestRequestIDIsPropagated(t *testing.T) {
	e, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "req-123", decode(t, rec).Meta.RequestID)
}

func TestRegister(t *testing.T) {
	e, uc := newTestAPI(t)

	uc.EXPECT().
		RegisterUser(mock.Anything, &usecase.RegisterUserInput{Username: "alice", Email: "a@x.com", Password: "pw1"}).
		Return(alice, nil)

	rec := doRequest(e, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@x.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decode(t, rec)
	var user handler.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		ucErr      error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "superuser self-registration",
			body:       `{"username":"eve","email":"e@x.com","password":"pw","is_superuser":true}`,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "invalid email",
			body:       `{"username":"eve","email":"nope","password":"pw"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "password over 72 bytes",
			body:       `{"username":"eve","email":"e@x.com","password":"` + strings.Repeat("é", 72) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "short username",
			body:       `{"username":"ev","email":"e@x.com","password":"pw"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "email-shaped username",
			body:       `{"username":"b@y.com","email":"e@x.com","password":"pw"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed json",
			body:       `{"username":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "duplicate username",
			body:       `{"username":"alice","email":"b@y.com","password":"pw2"}`,
			ucErr:      errors.Wrap(domainerrors.ErrDuplicateUsername, "failed to register user"),
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_USERNAME",
		},
		{
			name:       "duplicate email",
			body:       `{"username":"bob","email":"a@x.com","password":"pw2"}`,
			ucErr:      domainerrors.ErrDuplicateEmail,
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_EMAIL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, uc := newTestAPI(t)
			if tt.ucErr != nil {
				uc.EXPECT().RegisterUser(mock.Anything, mock.Anything).Return(nil, tt.ucErr)
			}

			rec := doRequest(e, http.MethodPost, "/auth/register", tt.body, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestRegister_ValidationDetails(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/auth/register", `{"username":"eve","email":"nope"}`, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email: email; password: required", decode(t, rec).Error.Details)
}

func TestRegister_BodyTooLarge(t *testing.T) {
	e, _ := newTestAPI(t)

	body := `{"username":"` + strings.Repeat("a", 2048) + `"}`
	rec := doRequest(e, http.MethodPost, "/auth/register", body, "")

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLogin(t *testing.T) {
	e, uc := newTestAPI(t)

	expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	uc.EXPECT().
		Login(mock.Anything, &usecase.LoginInput{Username: "alice", Password: "pw1"}).
		Return(&usecase.LoginOutput{
			AccessToken: &service.AccessToken{Token: "signed", TokenType: service.TokenTypeBearer, ExpiresAt: expiresAt},
			User:        alice,
		}, nil)

	rec := doRequest(e, http.MethodPost, "/auth/login", `{"username":"alice","password":"pw1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var token handler.TokenResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &token))
	assert.Equal(t, "signed", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.True(t, expiresAt.Equal(token.ExpiresAt))
	assert.Equal(t, "alice", token.User.Username)
}

func TestLogin_FormEncoded(t *testing.T) {
	e, uc := newTestAPI(t)

	uc.EXPECT().
		Login(mock.Anything, &usecase.LoginInput{Username: "alice", Password: "pw1"}).
		Return(&usecase.LoginOutput{AccessToken: &service.AccessToken{Token: "signed"}, User: alice}, nil)

	form := url.Values{"username": {"alice"}, "password": {"pw1"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e, uc := newTestAPI(t)

	uc.EXPECT().Login(mock.Anything, mock.Anything).Return(nil, domainerrors.ErrInvalidCredentials)

	rec := doRequest(e, http.MethodPost, "/auth/login", `{"username":"alice","password":"bad"}`, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, rec).Error.Code)
}

func TestAuthentication(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		e, _ := newTestAPI(t)

		rec := doRequest(e, http.MethodGet, "/users/me", "", "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "MISSING_TOKEN", decode(t, rec).Error.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		e, _ := newTestAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Basic YWxpY2U6cHcx")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", decode(t, rec).Error.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		e, uc := newTestAPI(t)
		uc.EXPECT().Authenticate(mock.Anything, "expired").Return(nil, domainerrors.ErrInvalidToken)

		rec := doRequest(e, http.MethodGet, "/users/me", "", "expired")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Could not validate credentials", decode(t, rec).Error.Message)
	})

	t.Run("deleted principal", func(t *testing.T) {
		e, uc := newTestAPI(t)
		uc.EXPECT().Authenticate(mock.Anything, "tok").Return(nil, domainerrors.ErrUserNotFound)

		rec := doRequest(e, http.MethodGet, "/users/me", "", "tok")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)

		rec := doRequest(e, http.MethodGet, "/users/me", "", "tok")

		require.Equal(t, http.StatusOK, rec.Code)
		var user handler.UserResponse
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &user))
		assert.Equal(t, alice.ID, user.ID)
	})
}

func TestListUsers(t *testing.T) {
	e, uc := newTestAPI(t)
	authenticateAs(uc, "tok", alice)

	uc.EXPECT().
		ListUsers(mock.Anything, &usecase.ListUsersInput{Skip: 1, Limit: 2}).
		Return([]*entity.User{alice, admin}, nil)

	rec := doRequest(e, http.MethodGet, "/users?skip=1&limit=2", "", "tok")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []handler.UserResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "root", users[1].Username)
}

func TestListUsers_BadQuery(t *testing.T) {
	for _, target := range []string{"/users?skip=-1", "/users?limit=abc"} {
		t.Run(target, func(t *testing.T) {
			e, uc := newTestAPI(t)
			authenticateAs(uc, "tok", alice)

			rec := doRequest(e, http.MethodGet, target, "", "tok")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetUser(t *testing.T) {
	e, uc := newTestAPI(t)
	authenticateAs(uc, "tok", alice)

	uc.EXPECT().GetUser(mock.Anything, int64(9)).Return(admin, nil)
	uc.EXPECT().GetUser(mock.Anything, int64(42)).Return(nil, domainerrors.ErrUserNotFound)

	rec := doRequest(e, http.MethodGet, "/users/9", "", "tok")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/users/42", "", "tok")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", decode(t, rec).Error.Code)

	rec = doRequest(e, http.MethodGet, "/users/abc", "", "tok")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUser(t *testing.T) {
	t.Run("self update of email", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)

		updated := *alice
		updated.Email = "new@x.com"
		uc.EXPECT().
			UpdateUser(mock.Anything, int64(1), mock.MatchedBy(func(in *usecase.UpdateUserInput) bool {
				return in.Email != nil && *in.Email == "new@x.com" && in.Username == nil && in.Password == nil
			})).
			Return(&updated, nil)

		rec := doRequest(e, http.MethodPatch, "/users/1", `{"email":"new@x.com"}`, "tok")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "new@x.com")
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)

		rec := doRequest(e, http.MethodPut, "/users/9", `{"username":"mallory"}`, "tok")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("self promotion is forbidden", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)

		rec := doRequest(e, http.MethodPatch, "/users/1", `{"is_superuser":true}`, "tok")

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", decode(t, rec).Error.Code)
	})

	t.Run("superuser deactivates another user", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "root-tok", admin)

		inactive := *alice
		inactive.IsActive = false
		uc.EXPECT().
			UpdateUser(mock.Anything, int64(1), mock.MatchedBy(func(in *usecase.UpdateUserInput) bool {
				return in.IsActive != nil && !*in.IsActive
			})).
			Return(&inactive, nil)

		rec := doRequest(e, http.MethodPatch, "/users/1", `{"is_active":false}`, "root-tok")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)
		uc.EXPECT().UpdateUser(mock.Anything, int64(1), mock.Anything).Return(nil, domainerrors.ErrDuplicateEmail)

		rec := doRequest(e, http.MethodPatch, "/users/1", `{"email":"root@x.com"}`, "tok")

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("self delete", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)
		uc.EXPECT().DeleteUser(mock.Anything, int64(1)).Return(nil)

		rec := doRequest(e, http.MethodDelete, "/users/1", "", "tok")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)

		rec := doRequest(e, http.MethodDelete, "/users/9", "", "tok")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("superuser deletes missing user", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "root-tok", admin)
		uc.EXPECT().DeleteUser(mock.Anything, int64(5)).Return(domainerrors.ErrUserNotFound)

		rec := doRequest(e, http.MethodDelete, "/users/5", "", "root-tok")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("requires superuser", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "tok", alice)

		rec := doRequest(e, http.MethodPost, "/users", `{"username":"bob","email":"b@y.com","password":"pw"}`, "tok")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("superuser may grant flags", func(t *testing.T) {
		e, uc := newTestAPI(t)
		authenticateAs(uc, "root-tok", admin)

		created := &entity.User{ID: 2, Username: "ops", Email: "ops@x.com", IsActive: true, IsSuperuser: true}
		uc.EXPECT().
			RegisterUser(mock.Anything, mock.MatchedBy(func(in *usecase.RegisterUserInput) bool {
				return in.IsSuperuser != nil && *in.IsSuperuser
			})).
			Return(created, nil)

		rec := doRequest(e, http.MethodPost, "/users", `{"username":"ops","email":"ops@x.com","password":"pw","is_superuser":true}`, "root-tok")

		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestUnhandledErrorHidesDetails(t *testing.T) {
	e, uc := newTestAPI(t)
	authenticateAs(uc, "tok", alice)
	uc.EXPECT().GetUser(mock.Anything, int64(1)).Return(nil, errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	rec := doRequest(e, http.MethodGet, "/users/1", "", "tok")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec).Error.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}
