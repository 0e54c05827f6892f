package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"timerdeck/internal/models"
	"timerdeck/internal/notifier"
	"timerdeck/internal/notify"
	"timerdeck/internal/sound"
	"timerdeck/internal/store"
	"timerdeck/internal/stream"
	"timerdeck/internal/validation"
	"timerdeck/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

// Pinger checks the storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the timer API.
type Handler struct {
	Store     *store.Store
	Notifier  *notifier.Notifier
	Center    *notify.Center
	Validator *validation.Validator
	Storage   Pinger
	Hub       *stream.Hub

	timersGroup singleflight.Group
}

var alertWAV = sync.OnceValue(sound.AlertTone.WAV)

// GetTimers returns the whole collection. Concurrent requests share one encoding.
func (h *Handler) GetTimers(c *gin.Context) {
	ctx := c.Request.Context()
	v, err, _ := h.timersGroup.Do("timers", func() (interface{}, error) {
		timers := h.Store.Timers()
		if timers == nil {
			timers = []models.Timer{}
		}
		return json.Marshal(timers)
	})
	if err != nil {
		logger.Error(ctx, "GetTimers encode failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get timers"})
		return
	}
	c.Data(http.StatusOK, "application/json", v.([]byte))
}

// GetTimer returns one timer.
func (h *Handler) GetTimer(c *gin.Context) {
	t, ok := h.Store.Get(c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

// CreateTimer validates the form and adds a stopped timer.
func (h *Handler) CreateTimer(c *gin.Context) {
	ctx := c.Request.Context()
	var form validation.TimerForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	total, err := h.Validator.Check(ctx, form)
	if err != nil {
		validationFailed(c, err)
		return
	}
	t := h.Store.Add(ctx, models.NewTimer{
		Title:         form.Title,
		Description:   form.Description,
		Duration:      total,
		RemainingTime: total,
	})
	c.JSON(http.StatusCreated, t)
}

// UpdateTimer applies a partial form, then rewinds and stops the timer.
func (h *Handler) UpdateTimer(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	current, ok := h.Store.Get(id)
	if !ok {
		notFound(c)
		return
	}
	var patch validation.FormPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	form := patch.Apply(validation.FormFromTimer(current))
	total, err := h.Validator.Check(ctx, form)
	if err != nil {
		validationFailed(c, err)
		return
	}
	t, ok := h.Store.Edit(ctx, id, models.TimerUpdates{
		Title:       &form.Title,
		Description: &form.Description,
		Duration:    &total,
	})
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTimer removes a timer and any live alert for it.
func (h *Handler) DeleteTimer(c *gin.Context) {
	if !h.Store.Delete(c.Request.Context(), c.Param("id")) {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleTimer is the play/pause button. A depleted timer starts over.
func (h *Handler) ToggleTimer(c *gin.Context) {
	t, ok := h.Store.PlayPause(c.Request.Context(), c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

// RestartTimer rewinds a timer to its full duration.
func (h *Handler) RestartTimer(c *gin.Context) {
	t, ok := h.Store.Restart(c.Request.Context(), c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DismissAlert stops the completion alert of a timer.
func (h *Handler) DismissAlert(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Store.Get(id); !ok {
		notFound(c)
		return
	}
	dismissed := h.Notifier.Dismiss(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"id": id, "dismissed": dismissed})
}

// ListNotifications returns the visible notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"position":      h.Center.Position(),
		"notifications": h.Center.Active(),
	})
}

// DismissNotification closes a notification and runs its action.
func (h *Handler) DismissNotification(c *gin.Context) {
	if !h.Center.Dismiss(c.Request.Context(), notify.Handle(c.Param("handle"))) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetViewport records the UI width that decides notification placement.
func (h *Handler) SetViewport(c *gin.Context) {
	var body struct {
		Width *int `json:"width" binding:"required,gte=0"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	h.Center.SetViewportWidth(*body.Width)
	c.JSON(http.StatusOK, gin.H{"width": *body.Width, "position": h.Center.Position()})
}

// AlertSound serves the completion tone.
func (h *Handler) AlertSound(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "audio/wav", alertWAV())
}

// Stream sends a snapshot, then every timer change, notification and beep as server-sent events.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	events, cancel := h.Hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	first := stream.Snapshot(h.Store.Timers())
	c.SSEvent(first.Name, first.Data)
	c.Writer.Flush()

	logger.Debug(ctx, "Stream listener connected", "listeners", h.Hub.Listeners())
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// Health returns 200 if the process is alive. Used by load balancers.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if the storage backend is reachable. Used by K8s readiness checks.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if h.Storage == nil {
		c.String(http.StatusOK, "OK")
		return
	}
	if err := h.Storage.Ping(ctx); err != nil {
		logger.Warn(ctx, "Readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage unavailable"})
		return
	}
	c.String(http.StatusOK, "OK")
}

func validationFailed(c *gin.Context, err error) {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
		return
	}
	logger.Error(c.Request.Context(), "Validation failed unexpectedly", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Validation failed"})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": store.ErrNotFound.Error()})
}
