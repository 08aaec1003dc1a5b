// internal/httpserver/server.go
//
// HTTP server wiring for the hangman backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     request logging, tracing spans).
//   - Public endpoints: "/", "/health".
//   - Player and word catalogue endpoints: /players, /words.
//   - Game endpoints: mounted under /games.
//   - Mapping of domain error codes to HTTP statuses.
//
// Notes:
//   - Every error body has the shape {"error":"<CODE>","message":"..."}.
//   - CORS is single-origin and credentials-enabled.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// GameService is the set of operations the HTTP layer exposes.
// *service.Service satisfies it.
type GameService interface {
	Start(ctx context.Context, playerID int64) (game.View, error)
	Guess(ctx context.Context, playerID int64, letter rune) (game.View, error)
	GamesByPlayer(ctx context.Context, playerID int64) ([]game.Record, error)
	AllGames(ctx context.Context) ([]game.Record, error)
	Leaderboard(ctx context.Context, limit int) ([]game.Standing, error)

	CreatePlayer(ctx context.Context, name string) (*game.Player, error)
	GetPlayer(ctx context.Context, id int64) (*game.Player, error)
	ListPlayers(ctx context.Context) ([]game.Player, error)

	AddWord(ctx context.Context, text string) (*game.Word, error)
	ListWords(ctx context.Context) ([]game.Word, error)
}

// Options tunes the middleware stack.
type Options struct {
	ClientOrigin   string        // allowed CORS origin; default http://localhost:5173
	RequestTimeout time.Duration // per-request deadline; default 10s
}

var endpoints = []string{
	"/health", "/players", "/words",
	"POST /games/start/{playerId}", "POST /games/guess/{playerId}",
	"/games", "/games/player/{playerId}", "/games/leaderboard",
}

// Server bundles the router and the game service.
type Server struct {
	r      *chi.Mux
	svc    GameService
	tracer trace.Tracer
}

// New constructs a Server, installs middleware, and registers routes.
func New(svc GameService, o Options) *Server {
	if o.ClientOrigin == "" {
		o.ClientOrigin = "http://localhost:5173"
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	s := &Server{
		r:      chi.NewRouter(),
		svc:    svc,
		tracer: otel.Tracer("github.com/robalobadob/hangman/apps/go-server/internal/httpserver"),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // one log line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(o.RequestTimeout)) // bound handler time
	s.r.Use(s.traceRoute)                    // span per request
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(o.ClientOrigin))            // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"service": "hangman-go", "endpoints": endpoints})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	s.mountCatalog(s.r)
	s.mountGames(s.r)

	// JSON 404/405 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: "no route for " + r.URL.Path})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "METHOD_NOT_ALLOWED", Message: r.Method + " " + r.URL.Path})
	})

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.r.ServeHTTP(w, r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes method, path, status and latency at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debug().
				Str("requestId", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// traceRoute opens a server span named after the request method and path.
func (s *Server) traceRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.request_id", chimw.GetReqID(r.Context()))),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ------------------------------- helpers -----------------------------------

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

// writeError maps err onto a status code and error body. Unknown errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := game.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		log.Error().Err(err).
			Str("requestId", chimw.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, status, errorBody{Error: string(code), Message: http.StatusText(status)})
		return
	}
	writeJSON(w, status, errorBody{Error: string(code), Message: err.Error()})
}

func statusFor(c game.Code) int {
	switch c {
	case game.CodePlayerNotFound:
		return http.StatusNotFound
	case game.CodeWordPoolExhausted, game.CodeNoActiveSession, game.CodeSessionActive, game.CodeConflict:
		return http.StatusConflict
	case game.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v, rejecting unknown shapes with INVALID_INPUT.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &game.Error{Code: game.CodeInvalidInput, Message: "malformed JSON body"}
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &game.Error{Code: game.CodeInvalidInput, Message: name + " must be a positive integer"}
	}
	return id, nil
}
