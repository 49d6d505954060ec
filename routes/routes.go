package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/courtclub/competition-system/handlers"
	"github.com/courtclub/competition-system/middleware"
	"github.com/courtclub/competition-system/models"
)

// SetupRoutes собирает все HTTP-маршруты приложения. Чтение открыто всем,
// мутации — только аутентифицированным организаторам.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	contestHandler *handlers.ContestHandler,
	matchHandler *handlers.MatchHandler,
	teamHandler *handlers.TeamHandler,
	bookingHandler *handlers.BookingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	organizerOnly := func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(models.RoleOrganizer))
	}

	router.Route("/contests", func(r chi.Router) {
		// Публичные маршруты просмотра
		r.Get("/{contestID}", contestHandler.Get)
		r.Get("/{contestID}/bracket", contestHandler.GetBracket)
		r.Get("/{contestID}/ranking", contestHandler.GetRanking)
		r.Get("/{contestID}/teams", teamHandler.List)
		r.Get("/{contestID}/pending-pool", contestHandler.GetPendingPool)

		// Только для организаторов
		r.Group(func(r chi.Router) {
			organizerOnly(r)

			r.Post("/", contestHandler.Create)
			r.Patch("/{contestID}/status", contestHandler.UpdateStatus)
			r.Post("/{contestID}/schedule", contestHandler.GenerateSchedule)
			r.Post("/{contestID}/finish", contestHandler.Finish)
			r.Post("/{contestID}/finish-root", contestHandler.FinishRoot)
			r.Post("/{contestID}/sub-stages", contestHandler.CreateSubStage)
			r.Post("/{contestID}/assignments", contestHandler.AssignTeams)
			r.Post("/{contestID}/teams", teamHandler.Create)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", teamHandler.Get)

		r.Group(func(r chi.Router) {
			organizerOnly(r)
			r.Post("/{teamID}/logo", teamHandler.UploadLogo)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.Get)

		r.Group(func(r chi.Router) {
			organizerOnly(r)

			r.Post("/{matchID}/details", matchHandler.RecordDetail)
			r.Post("/{matchID}/result", matchHandler.RecordResult)
			r.Delete("/{matchID}", matchHandler.Delete)
		})
	})

	router.Route("/courts", func(r chi.Router) {
		r.Get("/", bookingHandler.ListCourts)
		r.Get("/{courtID}/bookings", bookingHandler.ListBookings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))

			r.Post("/{courtID}/bookings", bookingHandler.Book)
		})

		r.Group(func(r chi.Router) {
			organizerOnly(r)
			r.Post("/", bookingHandler.CreateCourt)
		})
	})

	router.Route("/bookings", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Delete("/{bookingID}", bookingHandler.Cancel)
		})
	})

	router.Get("/ws/contests/{contestID}", webSocketHandler.ServeWs)
}
