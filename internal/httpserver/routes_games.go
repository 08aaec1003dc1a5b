// internal/httpserver/routes_games.go
//
// HTTP routes for playing and reviewing games.
// Exposes five endpoints under /games:
//   - POST /games/start/{playerId}  → start (or resume) a session
//   - POST /games/guess/{playerId}  → guess one letter in the latest session
//   - GET  /games                   → every finished game, newest first
//   - GET  /games/player/{playerId} → one player's finished games
//   - GET  /games/leaderboard       → players ranked by total score (?limit=)
//
// A guess body is {"letter":"a"}; anything but exactly one character is
// rejected. Non-letter characters are accepted and count as misses.

package httpserver

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// mountGames registers all /games routes.
func (s *Server) mountGames(r chi.Router) {
	r.Route("/games", func(r chi.Router) {
		r.Get("/", s.handleAllGames)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/player/{playerId}", s.handlePlayerGames)
		r.Post("/start/{playerId}", s.handleStart)
		r.Post("/guess/{playerId}", s.handleGuess)
	})
}

// handleStart returns the view of a new session, or of the session already
// in progress for the selected word.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.Start(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// guessReq is the request payload for /games/guess.
type guessReq struct {
	Letter string `json:"letter"`
}

// handleGuess validates and applies a single-character guess.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req guessReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if utf8.RuneCountInString(req.Letter) != 1 {
		writeError(w, r, &game.Error{Code: game.CodeInvalidInput, Message: "letter must be exactly one character"})
		return
	}
	letter, _ := utf8.DecodeRuneInString(req.Letter)

	v, err := s.svc.Guess(r.Context(), id, letter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAllGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.svc.AllGames(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(games))
}

func (s *Server) handlePlayerGames(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	games, err := s.svc.GamesByPlayer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(games))
}

// lbRes is returned by /games/leaderboard.
type lbRes struct {
	Top []game.Standing `json:"top"`
}

// handleLeaderboard returns the top players; limit defaults server-side.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, r, &game.Error{Code: game.CodeInvalidInput, Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	rows, err := s.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Top: nonNil(rows)})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
