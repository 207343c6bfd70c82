package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"datahalo/internal/handlers"
	"datahalo/internal/middleware"
	"datahalo/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	tutorHandler *handlers.TutorHandler,
	analyzerHandler *handlers.AnalyzerHandler,
	lmsHandler *handlers.LMSHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// The analyzer calls out to the LLM per request, keep it on a budget too.
	analyzeLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Auth Routes (public) ────
	r.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/google", authHandler.GoogleLogin)
		r.Post("/refresh", authHandler.Refresh)

		// Logout requires auth
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/logout", authHandler.Logout)
		})
	})

	// ──── AI Tutor Routes ────
	// Chat works without an account, so these stay public; session
	// listing is keyed by the caller-supplied user id.
	r.Route("/ai-tutor", func(r chi.Router) {
		r.Post("/", tutorHandler.Ask)
		r.Get("/chats/{userId}", tutorHandler.ListChats)
		r.Get("/chat/{chatId}/messages", tutorHandler.GetMessages)
		r.Post("/chat/create", tutorHandler.CreateChat)
		r.Put("/chat/title", tutorHandler.RenameChat)
		r.Delete("/chat/{chatId}", tutorHandler.DeleteChat)
	})

	// ──── Article Analyzer Routes ────
	r.Group(func(r chi.Router) {
		r.Use(analyzeLimiter.Middleware)
		r.Post("/analyze-article", analyzerHandler.AnalyzeArticle)
		r.Post("/analyze-url", analyzerHandler.AnalyzeURL)
		r.Post("/analyze-upload", analyzerHandler.AnalyzeUpload)
	})

	// ──── LMS Routes ────
	r.Route("/lms", func(r chi.Router) {
		r.Use(jwtAuth.Middleware)

		r.Route("/courses", func(r chi.Router) {
			r.Get("/student/{uid}", lmsHandler.StudentCourses)
			r.Get("/teacher/{uid}", lmsHandler.TeacherCourses)
			r.Post("/create", lmsHandler.CreateCourse)
		})

		r.Post("/enroll", lmsHandler.Enroll)
		r.Get("/classes/{id}", lmsHandler.GetClass)

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/course/{id}", lmsHandler.CourseAssignments)
			r.Post("/create", lmsHandler.CreateAssignment)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/submit", lmsHandler.Submit)
			r.Get("/student/{uid}", lmsHandler.StudentSubmissions)
		})

		r.Get("/journalists/all", lmsHandler.Journalists)
		r.Post("/case-studies/submit", lmsHandler.SubmitCaseStudy)
	})

	// ──── WebSocket ────
	r.Get("/ws", wsHub.HandleWebSocket)

	return r
}
