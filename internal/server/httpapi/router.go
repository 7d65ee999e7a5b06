// Package httpapi serves the account and session API over HTTP with chi.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

// Gateway is the part of services.AuthService the API calls.
type Gateway interface {
	Register(ctx context.Context, in validation.RegistrationInput) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Verify(ctx context.Context, token string) (*services.TokenInfo, error)
	Logout(ctx context.Context, refreshToken string) error
	Authorize(ctx context.Context, accessToken string) (uuid.UUID, error)
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateMe(ctx context.Context, id uuid.UUID, in validation.AccountUpdate) (*models.Account, error)
	DeleteMe(ctx context.Context, id uuid.UUID) error
	Profile(ctx context.Context, id uuid.UUID) (*services.ProfileView, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in validation.ProfileUpdate) (*services.ProfileView, error)
	AvatarUploadURL(ctx context.Context, id uuid.UUID) (*services.AvatarUpload, error)
}

// RequestObserver records request latency. *metrics.Metrics satisfies it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Middleware wraps an http.Handler.
type Middleware = func(http.Handler) http.Handler

type Options struct {
	AllowedOrigins []string
	// LoginRateLimit is requests per minute per client IP on register and
	// login. Zero disables the limit.
	LoginRateLimit int
	Metrics        http.Handler
	Observer       RequestObserver
	Tracing        Middleware
}

type API struct {
	gateway Gateway
	logger  logging.Logger
}

func New(g Gateway, l logging.Logger) *API {
	if l == nil {
		l = logging.NopLogger{}
	}
	return &API{gateway: g, logger: l.With("module", "http_api")}
}

// Routes builds the router with health, metrics and the /api/v1 endpoints.
func (a *API) Routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if opts.Tracing != nil {
		r.Use(opts.Tracing)
	}
	if opts.Observer != nil {
		r.Use(observe(opts.Observer))
	}

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.LoginRateLimit > 0 {
				r.Use(httprate.LimitByIP(opts.LoginRateLimit, time.Minute))
			}
			r.Post("/register", a.handleRegister)
			r.Post("/login", a.handleLogin)
		})

		r.Post("/token/refresh", a.handleRefresh)
		r.Post("/token/verify", a.handleVerify)
		r.Post("/token/revoke", a.handleRevoke)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAccess)
			r.Get("/me", a.handleGetMe)
			r.Patch("/me", a.handleUpdateMe)
			r.Delete("/me", a.handleDeleteMe)
			r.Get("/me/profile", a.handleGetProfile)
			r.Patch("/me/profile", a.handleUpdateProfile)
			r.Post("/me/profile/avatar", a.handleAvatarUpload)
		})
	})

	return r
}
