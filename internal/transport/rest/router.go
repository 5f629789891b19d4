package rest

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	"timedquiz/docs"
	"timedquiz/internal/config"
	"timedquiz/internal/transport/rest/handler"
	"timedquiz/internal/transport/rest/middleware"
	"timedquiz/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	Sampler      handler.Sampler
	DefaultCount int
	CORS         config.CORS
	WSHandler    *ws.Handler
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	questionHandler := handler.NewQuestionHandler(c.Sampler, c.DefaultCount)

	r.Use(middleware.Logging)
	r.Use(middleware.CORS(c.CORS))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/questions", questionHandler.GetQuestions).Methods("GET", "OPTIONS")
	if c.WSHandler != nil {
		api.HandleFunc("/ws/quiz", c.WSHandler.QuizWS).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
		if err != nil {
			log.Printf("Failed to render API doc: %v", err)
			http.Error(w, "api doc unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}).Methods("GET")

	return r
}
