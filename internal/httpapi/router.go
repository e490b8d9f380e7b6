package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hotelsuite/internal/api"
	"hotelsuite/internal/auth"
	"hotelsuite/internal/availability"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/channel"
	"hotelsuite/internal/metrics"
	"hotelsuite/internal/reservation"
	"hotelsuite/pkg/config"
)

type Dependencies struct {
	Cfg config.Config

	Catalog      catalog.Store
	Search       catalog.Searcher
	Availability *availability.Service
	Reservations *reservation.Service
	Auth         *auth.Service
	Revoker      auth.Revoker

	// Optional.
	Limiter *api.RateLimiter
	Metrics *metrics.Metrics
	// Ping reports whether the backing store is reachable; nil means always healthy.
	Ping func(ctx context.Context) error
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(api.RequestID, api.AccessLog, api.Recoverer)
	r.Use(deps.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				api.WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Metrics != nil && deps.Cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	search := deps.Search
	if search == nil {
		search = catalog.LocalSearch{Store: deps.Catalog}
	}
	catalogHandlers := catalog.Handlers{
		Store:    deps.Catalog,
		Resolver: catalog.Resolver{Store: deps.Catalog},
		Search:   search,
	}
	availabilityHandlers := availability.Handlers{Service: deps.Availability}
	reservationHandlers := reservation.Handlers{
		Service:        deps.Reservations,
		RequireAccount: deps.Cfg.Booking.RequireAccount,
	}
	authHandlers := auth.Handlers{
		Service:      deps.Auth,
		CookieName:   deps.Cfg.Auth.SessionCookieName,
		CookieSecure: deps.Cfg.Auth.CookieSecure,
	}
	sessions := auth.Middleware{
		Tokens:     deps.Auth.Tokens,
		Revoker:    deps.Revoker,
		CookieName: deps.Cfg.Auth.SessionCookieName,
	}
	limit := deps.Limiter

	// Storefront
	r.Route("/public", func(r chi.Router) {
		r.Use(api.CORSMiddleware(api.CORSOptions{
			AllowedOrigins: deps.Cfg.StorefrontAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", reservation.IdempotencyKeyHeader},
			MaxAgeSeconds:  600,
		}))

		r.Get("/room-types", catalogHandlers.RoomTypes)
		r.Get("/room-types/search", catalogHandlers.SearchRoomTypes)
		r.Get("/availability", availabilityHandlers.Get)
		r.Get("/rate-plans", catalogHandlers.RatePlans)

		r.With(limit.Limit("auth")).Post("/auth/register", authHandlers.Register)
		r.With(limit.Limit("auth")).Post("/auth/login", authHandlers.Login)

		r.Route("/reservations", func(r chi.Router) {
			r.With(limit.Limit("booking"), sessions.OptionalCustomer).Post("/", reservationHandlers.Create)
			r.With(sessions.CustomerAuth).Get("/me", reservationHandlers.Mine)
			r.Get("/{code}", reservationHandlers.Lookup)
			r.With(sessions.OptionalCustomer).Post("/{code}/cancel", reservationHandlers.CancelByCode)
		})
	})

	// Staff console
	r.Route("/api", func(r chi.Router) {
		r.Use(api.CORSMiddleware(api.CORSOptions{
			AllowedOrigins:   deps.Cfg.ConsoleAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", reservation.IdempotencyKeyHeader},
			AllowCredentials: true,
			MaxAgeSeconds:    600,
		}))

		r.With(limit.Limit("staff-login")).Post("/auth/login", authHandlers.StaffLogin)

		r.Group(func(r chi.Router) {
			r.Use(sessions.StaffSession)

			r.Post("/auth/logout", authHandlers.StaffLogout)
			r.Get("/auth/me", authHandlers.Me)

			r.Get("/reservations", reservationHandlers.AdminList)
			r.Post("/reservations", reservationHandlers.AdminCreate)
			r.Get("/reservations/{id}", reservationHandlers.AdminGet)
			r.Put("/reservations/{id}", reservationHandlers.AdminUpdate)
			r.Get("/reservations/{id}/events", reservationHandlers.AdminEvents)
			r.Post("/reservations/{id}/confirm", reservationHandlers.Transition(reservation.ActionConfirm))
			r.Post("/reservations/{id}/checkin", reservationHandlers.Transition(reservation.ActionCheckIn))
			r.Post("/reservations/{id}/checkout", reservationHandlers.Transition(reservation.ActionCheckOut))
			r.Post("/reservations/{id}/cancel", reservationHandlers.Transition(reservation.ActionCancel))
			r.Post("/reservations/{id}/no-show", reservationHandlers.Transition(reservation.ActionNoShow))

			r.Get("/availability", availabilityHandlers.Get)
			r.Get("/notifications", reservationHandlers.Notifications)
		})
	})

	// Channel partners
	r.Method(http.MethodPost, "/webhooks/channels/{partner}", channel.Handler{
		Reservations: deps.Reservations,
		Secrets:      deps.Cfg.ChannelSecrets,
	})

	return r
}
