package middleware_test

import (
	"errors"
	"hotel/config"
	"hotel/infras/jwt"
	jwtMocks "hotel/infras/jwt/mocks"
	otelMocks "hotel/infras/otel/mocks"
	"hotel/permissions"
	"hotel/shared/constant"
	"hotel/transport/http/middleware"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newAuthRouter(t *testing.T, jwtService jwt.JWT) *chi.Mux {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.APIKey = "internal-key"

	perms := &permissions.PermissionData{
		Endpoints: []permissions.Permission{
			{Path: "/v1/rooms", Method: http.MethodGet, Skip: true},
			{Path: "/v1/bookings", Method: http.MethodGet, Permissions: []string{constant.RoleAdmin, constant.RoleSuperAdmin}},
			{Path: "/v1/bookings/{id}", Method: http.MethodGet, Permissions: []string{}},
		},
	}

	authRole := middleware.NewAuthRoleMiddleware(jwtService, otelMocks.NewOtel(), perms, cfg)

	router := chi.NewRouter()
	router.Use(authRole.APIKey, authRole.Auth, authRole.RBAC)

	echoUser := func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(constant.ContextKeyUserID).(string)
		_, _ = w.Write([]byte(userID))
	}

	router.Get("/v1/rooms", echoUser)
	router.Get("/v1/bookings", echoUser)
	router.Get("/v1/bookings/{id}", echoUser)

	return router
}

func TestAuthRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockJWT := jwtMocks.NewMockJWT(ctrl)
	router := newAuthRouter(t, mockJWT)

	tests := []struct {
		name       string
		path       string
		headers    map[string]string
		setupMock  func()
		wantStatus int
		wantBody   string
	}{
		{
			name:       "public route skips auth",
			path:       "/v1/rooms",
			setupMock:  func() {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing token",
			path:       "/v1/bookings/b1",
			setupMock:  func() {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "expired token",
			path:    "/v1/bookings/b1",
			headers: map[string]string{constant.RequestHeaderAuthorization: "Bearer expired"},
			setupMock: func() {
				mockJWT.EXPECT().ValidateToken("expired", jwt.AccessToken).Return(nil, jwt.ErrExpiredToken)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "malformed token",
			path:    "/v1/bookings/b1",
			headers: map[string]string{constant.RequestHeaderAuthorization: "Bearer junk"},
			setupMock: func() {
				mockJWT.EXPECT().ValidateToken("junk", jwt.AccessToken).Return(nil, errors.New("bad signature"))
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "user reaches open route",
			path:    "/v1/bookings/b1",
			headers: map[string]string{constant.RequestHeaderAuthorization: "Bearer good"},
			setupMock: func() {
				mockJWT.EXPECT().ValidateToken("good", jwt.AccessToken).
					Return(&jwt.Claims{UserID: "u1", Role: constant.RoleUser}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "u1",
		},
		{
			name:    "user denied admin route",
			path:    "/v1/bookings",
			headers: map[string]string{constant.RequestHeaderAuthorization: "Bearer good"},
			setupMock: func() {
				mockJWT.EXPECT().ValidateToken("good", jwt.AccessToken).
					Return(&jwt.Claims{UserID: "u1", Role: constant.RoleUser}, nil)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:    "admin reaches admin route",
			path:    "/v1/bookings",
			headers: map[string]string{constant.RequestHeaderAuthorization: "Bearer admin"},
			setupMock: func() {
				mockJWT.EXPECT().ValidateToken("admin", jwt.AccessToken).
					Return(&jwt.Claims{UserID: "a1", Role: constant.RoleAdmin}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "a1",
		},
		{
			name:       "valid api key bypasses auth",
			path:       "/v1/bookings",
			headers:    map[string]string{constant.RequestHeaderAPIKey: "internal-key"},
			setupMock:  func() {},
			wantStatus: http.StatusOK,
			wantBody:   constant.ContextInternal,
		},
		{
			name:       "wrong api key",
			path:       "/v1/bookings",
			headers:    map[string]string{constant.RequestHeaderAPIKey: "guess"},
			setupMock:  func() {},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
