package http

import (
	"net/http"

	"github.com/go-auth-gate/internal/application/auth"
	"github.com/go-auth-gate/internal/application/gate"
	"github.com/go-auth-gate/internal/application/otp"
	"github.com/go-auth-gate/internal/application/policy"
	"github.com/go-auth-gate/internal/application/session"
	"github.com/go-auth-gate/internal/config"
	"github.com/go-auth-gate/internal/domain"
	jwtinfra "github.com/go-auth-gate/internal/infrastructure/jwt"
	"github.com/go-auth-gate/internal/infrastructure/oauth"
	"github.com/go-auth-gate/internal/pkg/metrics"
	"github.com/go-auth-gate/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-gate/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Store      IdentityStore
	Tokens     *jwtinfra.Provider
	OTPSender  handler.OTPSender
	Limiter    otp.AttemptLimiter     // optional
	Binder     auth.DirectoryBinder   // optional; nil disables the ldap strategy
	Exchangers map[domain.Provider]oauth.Exchanger
	Patterns   policy.PatternSource
	Metrics    *metrics.Metrics // optional
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	sessionSvc := session.NewService(session.ServiceDeps{Tokens: deps.Tokens, Secure: cfg.IsProduction()})
	accessGate := gate.New(sessionSvc, gate.Config{
		PublicPaths:    []string{cfg.SignInPath},
		ProtectedPaths: cfg.ProtectedPaths,
		HomePath:       cfg.PostLoginPath,
		SignInPath:     cfg.SignInPath,
	})
	r.Use(appmiddleware.Gate(accessGate, deps.Metrics))

	guard := policy.NewGuard(deps.Patterns)
	otpSvc := otp.NewService(otp.ServiceDeps{
		Store:   deps.Store,
		Limiter: deps.Limiter,
		Metrics: deps.Metrics,
		TTL:     cfg.OTPTTL,
	})

	exchangers := make(map[domain.Provider]auth.ProfileExchanger, len(deps.Exchangers))
	authURLs := make(map[domain.Provider]handler.AuthURLBuilder, len(deps.Exchangers))
	for p, ex := range deps.Exchangers {
		exchangers[p] = ex
		authURLs[p] = ex
	}
	strategies := []auth.Strategy{auth.NewOTPStrategy(otpSvc)}
	if len(exchangers) > 0 {
		strategies = append(strategies, auth.NewOAuthStrategy(exchangers, auth.NewNormalizer(guard)))
	}
	if deps.Binder != nil {
		strategies = append(strategies, auth.NewDirectoryStrategy(deps.Binder))
	}
	dispatcher := auth.NewDispatcher(deps.Metrics, strategies...)

	// 5 requests/second, burst of 10, applied to endpoints that issue or check credentials.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(otpSvc, guard, deps.OTPSender, sessionSvc)
	signInH := handler.NewSignInHandler(dispatcher, sessionSvc)
	oauthH := handler.NewOAuthHandler(handler.OAuthHandlerDeps{
		Providers:  authURLs,
		Auth:       dispatcher,
		Sessions:   sessionSvc,
		Secure:     cfg.IsProduction(),
		HomePath:   cfg.PostLoginPath,
		SignInPath: cfg.SignInPath,
	})
	sessionH := handler.NewSessionHandler(sessionSvc)
	pagesH := handler.NewPagesHandler()

	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/health-check/{action}", healthH.Ping)
	if cfg.MetricsEnabled && deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(sensitiveRL.Limit).Post("/request-otp", otpH.Request)
		r.With(sensitiveRL.Limit).Post("/verify-otp", otpH.Verify)
		r.With(sensitiveRL.Limit).Post("/signin/{strategy}", signInH.SignIn)
		r.Get("/oauth/{provider}/start", oauthH.Start)
		r.Get("/oauth/{provider}/callback", oauthH.Callback)
		r.Get("/session", sessionH.Current)
		r.Post("/logout", sessionH.Logout)
	})

	r.Get(cfg.SignInPath, pagesH.SignIn)
	for _, p := range cfg.ProtectedPaths {
		switch p {
		case "/profile":
			r.Get(p, pagesH.Profile)
		default:
			r.Get(p, pagesH.Dashboard)
		}
	}

	return r
}
