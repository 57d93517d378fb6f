package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter mounts the REST API, the websocket endpoint and the health check
// behind CORS. With no allowedOrigins every origin is accepted. Credentials
// travel as bearer headers, so cookies are never allowed.
func NewRouter(h *Handler, ws *WSHandler, auth Authenticator, allowedOrigins ...string) http.Handler {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/users/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/users/token", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/users/password-reset-request", h.RequestPasswordReset).Methods(http.MethodPost)
	r.HandleFunc("/users/reset-password", h.ResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/quiz/ranking", h.Ranking).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(requireUser(auth))
	protected.HandleFunc("/users/me", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/users/all", h.ListUsers).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id:[0-9]+}", h.DeleteUser).Methods(http.MethodDelete)
	protected.HandleFunc("/questions/upload-folder", h.UploadFolder).Methods(http.MethodPost)
	protected.HandleFunc("/datasets", h.ListDatasets).Methods(http.MethodGet)
	protected.HandleFunc("/datasets/{name}", h.DatasetQuestions).Methods(http.MethodGet)
	protected.HandleFunc("/datasets/{name}", h.DeleteDataset).Methods(http.MethodDelete)
	protected.HandleFunc("/quiz", h.StartQuiz).Methods(http.MethodPost)
	protected.HandleFunc("/quiz/reset", h.ResetQuiz).Methods(http.MethodDelete)
	protected.HandleFunc("/quiz/next", h.NextQuestion).Methods(http.MethodGet)
	protected.HandleFunc("/quiz/status", h.QuizStatus).Methods(http.MethodGet)
	protected.HandleFunc("/quiz/answer", h.SubmitAnswer).Methods(http.MethodPost)
	protected.HandleFunc("/quiz/debug", h.DebugQueue).Methods(http.MethodGet)
	protected.HandleFunc("/score/me", h.MyScore).Methods(http.MethodGet)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}
