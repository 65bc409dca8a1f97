package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	authsystem "github.com/MrEthical07/authsystem"
	"github.com/MrEthical07/authsystem/middleware"
)

// DefaultAllowedOrigin is the frontend origin allowed when Options.AllowedOrigins
// is empty.
const DefaultAllowedOrigin = "http://localhost:3000"

const maxBodyBytes = 1 << 20

// Engine is the engine surface the handlers call. *authsystem.Engine satisfies it.
type Engine interface {
	Register(ctx context.Context, in authsystem.RegisterInput) (authsystem.Result, error)
	Login(ctx context.Context, in authsystem.LoginInput) (authsystem.Result, error)
	ConfirmEmail(ctx context.Context, token string) (authsystem.Result, error)
	ResendConfirmation(ctx context.Context, email string) (authsystem.Result, error)
	GetProfile(ctx context.Context, claims *authsystem.SessionClaims) (authsystem.PublicUser, error)
	UpdateProfile(ctx context.Context, claims *authsystem.SessionClaims, name string) (authsystem.PublicUser, error)
	ValidateSession(token string) (*authsystem.SessionClaims, error)
}

// Options configures the HTTP surface.
type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
}

type handlers struct {
	engine Engine
	logger *slog.Logger
}

// New returns the fully wrapped handler: routes, then request context, access
// log, panic recovery and CORS.
func New(engine Engine, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "httpapi")

	h := &handlers{engine: engine, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/confirm-email", h.confirmEmail)
	mux.HandleFunc("POST /api/auth/resend-confirmation", h.resendConfirmation)

	guard := middleware.RequireSession(engine)
	mux.Handle("GET /api/user/profile", guard(http.HandlerFunc(h.getProfile)))
	mux.Handle("PUT /api/user/profile", guard(http.HandlerFunc(h.updateProfile)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{DefaultAllowedOrigin}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	})

	var handler http.Handler = mux
	handler = recoverPanics(logger)(handler)
	handler = accessLog(logger)(handler)
	handler = requestContext(handler)
	return c.Handler(handler)
}
