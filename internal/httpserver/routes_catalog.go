// internal/httpserver/routes_catalog.go
//
// HTTP routes for the player registry and the word corpus.
//   - POST /players {"name"}   → register a player (201)
//   - GET  /players            → all players
//   - GET  /players/{playerId} → one player
//   - POST /words {"text"}     → add a word or phrase (201)
//   - GET  /words              → word ids with used flags, never the text

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// mountCatalog registers /players and /words.
func (s *Server) mountCatalog(r chi.Router) {
	r.Route("/players", func(r chi.Router) {
		r.Post("/", s.handleCreatePlayer)
		r.Get("/", s.handleListPlayers)
		r.Get("/{playerId}", s.handleGetPlayer)
	})
	r.Route("/words", func(r chi.Router) {
		r.Post("/", s.handleAddWord)
		r.Get("/", s.handleListWords)
	})
}

type createPlayerReq struct {
	Name string `json:"name"`
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.CreatePlayer(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	ps, err := s.svc.ListPlayers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ps))
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.GetPlayer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type addWordReq struct {
	Text string `json:"text"`
}

func (s *Server) handleAddWord(w http.ResponseWriter, r *http.Request) {
	var req addWordReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	word, err := s.svc.AddWord(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, word)
}

// wordEntry is the public shape of a corpus word. The text stays server-side
// so listing the corpus cannot reveal answers to games in progress.
type wordEntry struct {
	ID   int64 `json:"id"`
	Used bool  `json:"used"`
}

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	ws, err := s.svc.ListWords(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]wordEntry, len(ws))
	for i, wd := range ws {
		out[i] = wordEntry{ID: wd.ID, Used: wd.Used}
	}
	writeJSON(w, http.StatusOK, out)
}
