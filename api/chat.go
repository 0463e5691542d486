package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/seenimoa/tickerproxy/pkg/models"
)

// maxChatBody bounds POST /chat bodies, history included.
const maxChatBody = 256 << 10

// handleChat answers 200 for every well-formed request; assistant failures
// arrive as a short text reply.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.chatTimeout)
	defer cancel()

	reply := s.deps.Chat.Chat(ctx, req)
	hlog.FromRequest(r).Debug().Bool("action", reply.IsAction()).Msg("chat answered")
	writeJSON(w, r, http.StatusOK, reply)
}
