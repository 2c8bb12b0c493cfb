package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

func envelope(data interface{}) models.APIResponse {
	return models.APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func abortWithError(c *gin.Context, appErr *models.AppError) {
	c.JSON(appErr.StatusCode, appErr.ToHTTPError())
}

// listEvents is the bulk read backing feed fetches. No server-side
// pagination; the client slices the full list.
func (s *Server) listEvents(c *gin.Context) {
	events, err := s.events.List(c.Request.Context())
	if err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeInternal, "failed to list events", http.StatusInternalServerError, err))
		return
	}

	c.JSON(http.StatusOK, envelope(models.EventListResponse{
		Events: events,
		Total:  len(events),
	}))
}

func (s *Server) getEvent(c *gin.Context) {
	event, err := s.events.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeNotFound, "event not found", http.StatusNotFound, err))
		return
	}
	c.JSON(http.StatusOK, envelope(event))
}

type createEventRequest struct {
	SubjectID string         `json:"subject_id"`
	Type      string         `json:"type" binding:"required"`
	Payload   map[string]any `json:"payload"`
}

func (s *Server) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeValidation, "invalid request body", http.StatusBadRequest, err))
		return
	}

	event := models.TimelineEvent{
		ID:         utils.GenerateEventID(),
		SubjectID:  req.SubjectID,
		Type:       req.Type,
		OccurredAt: time.Now(),
		Payload:    req.Payload,
	}

	if err := s.events.Create(c.Request.Context(), &event); err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			abortWithError(c, models.NewHTTPError(models.ErrCodeConflict, "event already exists", http.StatusConflict, err))
			return
		}
		abortWithError(c, models.NewHTTPError(models.ErrCodeInternal, "failed to create event", http.StatusInternalServerError, err))
		return
	}

	s.hub.BroadcastCreated(models.ActivityFromEvent(event))

	c.JSON(http.StatusCreated, envelope(event))
}

type updateEventRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (s *Server) updateEvent(c *gin.Context) {
	id := c.Param("id")
	existing, err := s.events.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeNotFound, "event not found", http.StatusNotFound, err))
		return
	}

	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeValidation, "invalid request body", http.StatusBadRequest, err))
		return
	}

	if req.Type != "" {
		existing.Type = req.Type
	}
	if req.Payload != nil {
		existing.Payload = req.Payload
	}

	if err := s.events.Update(c.Request.Context(), existing); err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeInternal, "failed to update event", http.StatusInternalServerError, err))
		return
	}

	s.hub.BroadcastUpdated(models.ActivityFromEvent(*existing))

	c.JSON(http.StatusOK, envelope(existing))
}

func (s *Server) deleteEvent(c *gin.Context) {
	id := c.Param("id")
	if err := s.events.Remove(c.Request.Context(), id); err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeNotFound, "event not found", http.StatusNotFound, err))
		return
	}

	s.hub.BroadcastRemoved(id)

	c.JSON(http.StatusOK, envelope(gin.H{"id": id}))
}

// verifyEvent reports the hash-chain verdict for an event. The chain
// walk happens inside the repository; the dashboard treats the verdict
// as opaque.
func (s *Server) verifyEvent(c *gin.Context) {
	id := c.Param("id")
	verified, err := s.events.Verify(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, models.NewHTTPError(models.ErrCodeNotFound, "event not found", http.StatusNotFound, err))
		return
	}

	c.JSON(http.StatusOK, envelope(models.VerifyResponse{
		EventID:   id,
		Verified:  verified,
		CheckedAt: time.Now(),
	}))
}
