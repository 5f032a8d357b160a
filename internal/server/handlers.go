package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/phoenixlab/rewriter/internal/app"
	"github.com/phoenixlab/rewriter/internal/extract"
	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/platform"
	"github.com/phoenixlab/rewriter/internal/rewrite"
	"github.com/phoenixlab/rewriter/internal/store"
)

// previewMaxRunes caps the echoed original text in responses.
const previewMaxRunes = 1000

type rewriteArticleRequest struct {
	URL      string `json:"url"`
	Text     string `json:"text"`
	Style    string `json:"style"`
	Provider string `json:"provider"`
	Username string `json:"username"`
}

type imageSet struct {
	Original  *string `json:"original"`
	Pexels    *string `json:"pexels"`
	Generated *string `json:"generated"`
}

type rewriteArticleResponse struct {
	Success       bool                        `json:"success"`
	OriginalText  string                      `json:"original_text"`
	Text          string                      `json:"text"`
	RewrittenText string                      `json:"rewritten_text"`
	URL           *string                     `json:"url"`
	Style         string                      `json:"style"`
	Provider      string                      `json:"provider"`
	Degraded      bool                        `json:"degraded"`
	FailedChunks  int                         `json:"failed_chunks"`
	TotalChunks   int                         `json:"total_chunks"`
	Images        imageSet                    `json:"images"`
	Variants      map[string]platform.Variant `json:"platform_variants"`
	URLID         *int64                      `json:"url_id"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewMaxRunes {
		return s
	}
	return string(runes[:previewMaxRunes]) + "..."
}

func (s *Server) handleRewriteArticle(w http.ResponseWriter, r *http.Request) {
	var req rewriteArticleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		req.Username = usernameFromToken(r, s.tokens)
	}

	result, err := s.svc.ProcessArticle(r.Context(), app.ProcessRequest{
		URL:      req.URL,
		Text:     req.Text,
		Style:    req.Style,
		Provider: req.Provider,
		Username: req.Username,
	})
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	resp := rewriteArticleResponse{
		Success:       true,
		OriginalText:  preview(result.OriginalText),
		Text:          result.RewrittenText,
		RewrittenText: result.RewrittenText,
		URL:           optional(result.URL),
		Style:         result.Style,
		Provider:      result.Provider,
		Degraded:      result.Degraded,
		FailedChunks:  result.FailedChunks,
		TotalChunks:   result.TotalChunks,
		Images: imageSet{
			Original:  optional(result.Images.Original),
			Pexels:    optional(result.Images.Searched),
			Generated: optional(result.Images.Generated),
		},
		Variants: result.Variants,
	}
	if result.URLID != 0 {
		resp.URLID = &result.URLID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	var validationErr *rewrite.ValidationError
	var blockedErr *extract.BlockedError
	var allFailedErr *rewrite.AllChunksFailedError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "%s", validationErr.Error())
	case errors.As(err, &blockedErr):
		writeError(w, http.StatusForbidden,
			"the site refuses automated access (403 Forbidden): %s", blockedErr.URL)
	case errors.Is(err, app.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "%s", err.Error())
	case errors.As(err, &allFailedErr):
		writeError(w, http.StatusInternalServerError, "%s", allFailedErr.Error())
	default:
		logger.Error("article processing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "%s", err.Error())
	}
}

type sendArticleRequest struct {
	ArticleText string   `json:"article_text"`
	ImageURL    string   `json:"image_url"`
	Channels    []string `json:"channels"`
}

func (s *Server) handleSendArticle(w http.ResponseWriter, r *http.Request) {
	var req sendArticleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.svc.Publish(r.Context(), app.PublishRequest{
		Text:     req.ArticleText,
		ImageURL: req.ImageURL,
		Channels: req.Channels,
	})
	if err != nil {
		if errors.Is(err, app.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "%s", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	failed := result.Failed
	if failed == nil {
		failed = []app.ChannelError{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sent":    result.Sent,
		"total":   result.Total,
		"failed":  failed,
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels := s.svc.Channels()
	if channels == nil {
		channels = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"channels": channels,
	})
}

func (s *Server) handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.tokens.Generate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	userData, ok := s.tokens.Verify(req.Token)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"authorized": false,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"authorized": true,
		"user":       userData,
	})
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string          `json:"token"`
		UserData json.RawMessage `json:"user_data"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" || len(req.UserData) == 0 {
		writeError(w, http.StatusBadRequest, "token and user_data are required")
		return
	}

	if !s.tokens.Authorize(req.Token, req.UserData) {
		writeError(w, http.StatusNotFound, "token not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleUserURLs(w http.ResponseWriter, r *http.Request) {
	if !s.history.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "history storage is not configured")
		return
	}

	username := r.PathValue("username")
	userID, err := s.history.EnsureUser(r.Context(), username, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%s", err.Error())
		return
	}
	urls, err := s.history.UserURLs(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%s", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"urls":    urls,
	})
}

func (s *Server) handleURLResults(w http.ResponseWriter, r *http.Request) {
	if !s.history.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "history storage is not configured")
		return
	}

	urlID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url id")
		return
	}
	results, err := s.history.URLResults(r.Context(), urlID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%s", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

// usernameFromToken resolves the request's auth token to a username so
// history rows land under the right user. Anonymous requests fall back
// to the service default.
func usernameFromToken(r *http.Request, tokens *store.TokenStore) string {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return ""
	}

	userData, ok := tokens.Verify(token)
	if !ok {
		return ""
	}
	var user struct {
		Username string `json:"username"`
		ID       int64  `json:"id"`
	}
	if err := json.Unmarshal(userData, &user); err != nil {
		return ""
	}
	if user.Username != "" {
		return user.Username
	}
	if user.ID != 0 {
		return "telegram_" + strconv.FormatInt(user.ID, 10)
	}
	return ""
}
