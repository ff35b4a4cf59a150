package agent

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ccastromar/barberchat/internal/catalog"
	"github.com/ccastromar/barberchat/internal/logx"
)

// Max request size for POST /chat (1MB)
const maxChatBodyBytes int64 = 1 << 20

// RequestIDKey is the gin context key holding the request id set by the
// request logger middleware.
const RequestIDKey = "request_id"

type APIAgent struct {
	planner *Planner
	phraser *Phraser
	apiKey  string
}

// NewAPIAgent wires the chat endpoint. An empty apiKey disables auth.
func NewAPIAgent(planner *Planner, phraser *Phraser, apiKey string) *APIAgent {
	return &APIAgent{
		planner: planner,
		phraser: phraser,
		apiKey:  strings.TrimSpace(apiKey),
	}
}

type chatRequest struct {
	Text    string          `json:"text"`
	Catalog json.RawMessage `json:"catalog"`
	Meta    json.RawMessage `json:"meta"`
}

// RegisterHTTP registra endpoints HTTP
func (a *APIAgent) RegisterHTTP(r gin.IRouter) {
	r.POST("/chat", a.requireAuth, a.handleChat)
}

// requireAuth enforces the API key when configured, via X-API-Key or a
// bearer token.
func (a *APIAgent) requireAuth(c *gin.Context) {
	if a.apiKey == "" {
		return
	}
	token := c.GetHeader("X-API-Key")
	if auth := c.GetHeader("Authorization"); token == "" && strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		token = strings.TrimSpace(auth[7:])
	}
	if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.apiKey)) == 1 {
		return
	}
	c.Header("WWW-Authenticate", "Bearer, X-API-Key")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
}

func (a *APIAgent) handleChat(c *gin.Context) {
	ct := c.GetHeader("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"ok": false, "error": "unsupported media type"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxChatBodyBytes)
	var req chatRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	id := c.GetString(RequestIDKey)
	if hasMeta(req.Meta) {
		a.handlePhrase(c, id, req)
		return
	}
	a.handlePlan(c, id, req)
}

// hasMeta reports whether the body carries a non-null meta member, which
// selects the phrasing mode.
func hasMeta(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func (a *APIAgent) handlePlan(c *gin.Context, id string, req chatRequest) {
	cat := catalog.FromRequest(req.Catalog)
	logx.L(id, "Api", "plan request empty_catalog=%t services=%d barbers=%d",
		cat.Empty(), len(cat.Services), len(cat.Barbers))

	plan, err := a.planner.Plan(c.Request.Context(), id, req.Text, cat)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, plan)
	case errors.Is(err, ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "text requerido"})
	case errors.Is(err, ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "language model not configured"})
	default:
		logx.Error("Api", "id=%s plan failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "language model request failed"})
	}
}

func (a *APIAgent) handlePhrase(c *gin.Context, id string, req chatRequest) {
	meta, err := ParseStepMeta(req.Meta)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logx.L(id, "Api", "phrase request step=%s", meta.Step)
	c.JSON(http.StatusOK, a.phraser.Phrase(c.Request.Context(), id, req.Text, *meta))
}
