package http

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/core"
	"github.com/vovakirdan/roomcast-server/internal/store"
	"github.com/vovakirdan/roomcast-server/internal/utils"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	registry *core.Registry
	history  store.Log
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(registry *core.Registry, history store.Log, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		registry: registry,
		history:  history,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"omitempty,max=64"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// MessageResponse represents one history record in API responses.
type MessageResponse struct {
	Message   string `json:"message"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

// StatsResponse summarizes live server state.
type StatsResponse struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ListRooms returns every room seen since startup with live member counts.
// GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	snap := h.registry.Snapshot()

	response := make([]RoomResponse, 0, len(snap))
	for name, members := range snap {
		response = append(response, RoomResponse{Name: name, Members: members})
	}
	sort.Slice(response, func(i, j int) bool { return response[i].Name < response[j].Name })

	c.JSON(http.StatusOK, response)
}

// CreateRoom registers a room up front, minting a random name when none
// is given.
// POST /api/rooms
func (h *APIHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = utils.NewID()
	}

	room := h.registry.Resolve(name)
	h.log.Info().Str("room", room.Room()).Msg("room created via api")
	c.JSON(http.StatusCreated, RoomResponse{Name: room.Room(), Members: room.MemberCount()})
}

// ListMessages returns the newest messages of a room in chronological
// order.
// GET /api/rooms/:name/messages?limit=N
func (h *APIHandlers) ListMessages(c *gin.Context) {
	room := c.Param("name")

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	records, err := h.history.ListRecent(c.Request.Context(), room, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, MessageResponse{
			Message:   rec.Body,
			Name:      rec.Name,
			Timestamp: rec.Timestamp,
		})
	}

	c.JSON(http.StatusOK, response)
}

// Stats reports room and connection counts.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	snap := h.registry.Snapshot()

	total := 0
	for _, members := range snap {
		total += members
	}

	c.JSON(http.StatusOK, StatsResponse{Rooms: len(snap), Connections: total})
}
