package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Crush-on-Study/Black-Market/internal/api/http/handler"
	"github.com/Crush-on-Study/Black-Market/internal/api/http/middleware"
	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/metrics"
	"github.com/Crush-on-Study/Black-Market/internal/model"
	"github.com/Crush-on-Study/Black-Market/internal/observability"
)

// Limits bounds request handling.
type Limits struct {
	CodeTTL        time.Duration
	MaxBodyBytes   int64
	MaxAvatarBytes int64
}

// Router wires HTTP routes to handlers and middleware.
type Router struct {
	authService    handler.AuthService
	accountService handler.AccountService
	tokenService   middleware.TokenService
	db             handler.Pinger
	contextManager model.ContextManager
	metrics        *metrics.Metrics
	limits         Limits
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
func New(
	authService handler.AuthService,
	accountService handler.AccountService,
	tokenService middleware.TokenService,
	db handler.Pinger,
	contextManager model.ContextManager,
	metrics *metrics.Metrics,
	limits Limits,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		accountService: accountService,
		tokenService:   tokenService,
		db:             db,
		contextManager: contextManager,
		metrics:        metrics,
		limits:         limits,
		logger:         logger,
	}
}

// Register builds the route tree.
func (r *Router) Register() http.Handler {
	root := mux.NewRouter()
	root.Use(
		observability.Recover(r.logger),
		middleware.NewLogging(r.logger).Handle,
		middleware.NewMetrics(r.metrics).Handle,
	)

	root.Handle("/metrics", r.metrics.Handler()).Methods(http.MethodGet)
	root.HandleFunc("/healthz", handler.NewHealth(r.db, r.logger).Check).Methods(http.MethodGet)

	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)
	r.registerAuthRoutes(root, authenticate)
	r.registerAccountRoutes(root, authenticate)

	return root
}

func (r *Router) registerAuthRoutes(root *mux.Router, authenticate *middleware.Authenticate) {
	h := handler.NewAuth(r.authService, r.contextManager, r.metrics, r.limits.CodeTTL, r.limits.MaxBodyBytes, r.logger)

	auth := root.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/request-verification", h.RequestVerification).Methods(http.MethodPost)
	auth.HandleFunc("/verify-email", h.VerifyEmail).Methods(http.MethodPost)
	auth.HandleFunc("/setup-user", h.SetupUser).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	auth.Handle("/logout-all", authenticate.Handle(http.HandlerFunc(h.LogoutAll))).Methods(http.MethodPost)
}

func (r *Router) registerAccountRoutes(root *mux.Router, authenticate *middleware.Authenticate) {
	h := handler.NewAccount(r.accountService, r.contextManager, r.limits.MaxBodyBytes, r.limits.MaxAvatarBytes, r.logger)

	users := root.PathPrefix("/users").Subrouter()
	users.Use(authenticate.Handle)
	users.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	users.HandleFunc("/me", h.UpdateMe).Methods(http.MethodPatch)
	users.HandleFunc("/me/avatar", h.UploadAvatar).Methods(http.MethodPut)
}
