package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/civixity/internal/chat"
	"github.com/MikeSquared-Agency/civixity/internal/model"
	"github.com/MikeSquared-Agency/civixity/internal/store"
)

const postsPageSize = 10

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request entity too large")
			return
		}
		// An unreadable body carries no message.
		req = chat.Request{}
	}

	reply, err := s.deps.Chat.Respond(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrMessageRequired) {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}
		s.logger.ErrorContext(r.Context(), "chat request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to process chat request",
			"message": "Failed to generate AI response",
		})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) postsByLocation(w http.ResponseWriter, r *http.Request) {
	location := pathParam(r, "location")
	posts := s.listPosts(r, store.IssueQuery{Location: location, Limit: postsPageSize})
	writeJSON(w, http.StatusOK, map[string]any{
		"location": location,
		"posts":    posts,
		"count":    len(posts),
	})
}

func (s *Server) postsByCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "category")
	posts := s.listPosts(r, store.IssueQuery{Category: category, Limit: postsPageSize})
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"posts":    posts,
		"count":    len(posts),
	})
}

func (s *Server) postsSummary(w http.ResponseWriter, r *http.Request) {
	section := s.deps.Summary.IssuesSummary(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"summary":   section.Text,
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

// listPosts never fails: a store error is logged and reads as no posts.
func (s *Server) listPosts(r *http.Request, q store.IssueQuery) []model.IssueReport {
	posts, err := s.deps.Posts.ListIssues(r.Context(), q)
	if err != nil {
		s.logger.WarnContext(r.Context(), "failed to list posts",
			"category", q.Category, "location", q.Location, "error", err)
		return []model.IssueReport{}
	}
	if posts == nil {
		return []model.IssueReport{}
	}
	return posts
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
