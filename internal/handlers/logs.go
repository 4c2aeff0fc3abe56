package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hadbitapp/hadbit-server/internal/services"
	"github.com/hadbitapp/hadbit-server/pkg/errors"
	"github.com/hadbitapp/hadbit-server/pkg/response"
)

// LogHandler exposes HTTP endpoints for habit log records.
type LogHandler struct {
	logs *services.LogService
}

// NewLogHandler constructs a log handler.
func NewLogHandler(logs *services.LogService) *LogHandler {
	return &LogHandler{logs: logs}
}

type logPayload struct {
	ItemID  uint      `json:"item_id" binding:"required"`
	DoneAt  time.Time `json:"done_at" binding:"required"`
	Comment string    `json:"comment"`
}

type logUpdatePayload struct {
	DoneAt  time.Time `json:"done_at" binding:"required"`
	Comment string    `json:"comment"`
}

type memoPayload struct {
	Memo string `json:"memo"`
}

// Create records a habit completion.
func (h *LogHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var payload logPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	id, err := h.logs.Create(requestContext(c), owner, payload.ItemID, payload.DoneAt, payload.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"id": id})
}

// Get returns one log joined with its item and parent category.
func (h *LogHandler) Get(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dto, err := h.logs.Get(requestContext(c), owner, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// List returns logs in the requested date window, newest first. Bounds come
// from optional "start" and "end" query parameters in RFC 3339 or date form.
func (h *LogHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	start, ok := parseTimeQuery(c, "start", false)
	if !ok {
		return
	}
	end, ok := parseTimeQuery(c, "end", true)
	if !ok {
		return
	}

	rows, err := h.logs.List(requestContext(c), owner, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, rows)
}

// Update overwrites the log's timestamp and comment.
func (h *LogHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var payload logUpdatePayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.logs.Update(requestContext(c), owner, id, payload.DoneAt, payload.Comment); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// UpdateMemo overwrites only the log's memo.
func (h *LogHandler) UpdateMemo(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var payload memoPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.logs.UpdateMemo(requestContext(c), owner, id, payload.Memo); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete removes a log and returns its prior fields so the client can offer
// an undo (a recreate with the same values).
func (h *LogHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	deleted, err := h.logs.Delete(requestContext(c), owner, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, deleted)
}

// parseTimeQuery reads an optional timestamp query parameter. Plain dates
// are accepted; endOfDay controls which edge of the day they resolve to.
func parseTimeQuery(c *gin.Context, key string, endOfDay bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, true
	}

	parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		response.Error(c, errors.NewBadRequest("invalid "+key+" timestamp"))
		return nil, false
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Second)
	}
	return &parsed, true
}
