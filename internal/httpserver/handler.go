package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartmailr/internal/model"
	"smartmailr/internal/normalizer"
	"smartmailr/internal/reporter"
	"smartmailr/internal/store"
)

// Pipeline is the surface handlers need from the orchestrator.
type Pipeline interface {
	Submit(ctx context.Context, raw normalizer.RawMessage) (string, error)
	Status(id string) (*model.ProcessingCase, error)
	Cancel(id string) error
}

// DigestSource serves aggregated outcome digests.
type DigestSource interface {
	Digest(ctx context.Context, from, to time.Time) ([]reporter.DigestEntry, error)
}

type PipelineHandler struct {
	pipeline Pipeline
	digests  DigestSource
}

func NewPipelineHandler(pipeline Pipeline, digests DigestSource) *PipelineHandler {
	return &PipelineHandler{
		pipeline: pipeline,
		digests:  digests,
	}
}

// SubmitMessage handles POST /messages
func (h *PipelineHandler) SubmitMessage(c *gin.Context) {
	var req struct {
		SourceID   string    `json:"source_id"`
		Sender     string    `json:"sender"`
		Subject    string    `json:"subject"`
		Body       string    `json:"body"`
		ReceivedAt time.Time `json:"received_at"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	caseID, err := h.pipeline.Submit(c.Request.Context(), normalizer.RawMessage{
		SourceID:   req.SourceID,
		Sender:     req.Sender,
		Subject:    req.Subject,
		Body:       req.Body,
		ReceivedAt: req.ReceivedAt,
	})
	if err != nil {
		if errors.Is(err, normalizer.ErrMalformedInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"case_id": caseID,
		"status":  "accepted",
	})
}

// GetCase handles GET /cases/:id
func (h *PipelineHandler) GetCase(c *gin.Context) {
	snap, err := h.pipeline.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load case"})
		return
	}

	c.JSON(http.StatusOK, caseResponse(snap))
}

// GetStagedAction handles GET /cases/:id/staged
func (h *PipelineHandler) GetStagedAction(c *gin.Context) {
	snap, err := h.pipeline.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load case"})
		return
	}

	if snap.ActionResult == nil || snap.ActionResult.Staged == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no staged action for this case"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"case_id": snap.ID,
		"staged":  snap.ActionResult.Staged,
	})
}

// CancelCase handles POST /cases/:id/cancel
func (h *PipelineHandler) CancelCase(c *gin.Context) {
	id := c.Param("id")
	if err := h.pipeline.Cancel(id); err != nil {
		if errors.Is(err, store.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel case"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"case_id": id,
		"status":  "cancel_requested",
	})
}

// GetDigest handles GET /digest?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *PipelineHandler) GetDigest(c *gin.Context) {
	if h.digests == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "digest not available"})
		return
	}

	now := time.Now().UTC()
	from := now.Add(-24 * time.Hour)
	to := now

	if s := c.Query("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		// Inclusive end date.
		to = t.Add(24 * time.Hour)
	}

	entries, err := h.digests.Digest(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build digest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"entries": entries,
	})
}

func caseResponse(snap *model.ProcessingCase) gin.H {
	resp := gin.H{
		"case_id":    snap.ID,
		"state":      snap.State.String(),
		"sender":     snap.Message.Sender,
		"subject":    snap.Message.Subject,
		"created_at": snap.CreatedAt,
	}

	history := make([]string, 0, len(snap.History))
	for _, s := range snap.History {
		history = append(history, s.String())
	}
	resp["history"] = history

	if snap.Intent != nil {
		resp["intent"] = string(*snap.Intent)
	}
	if snap.Draft != nil {
		resp["draft"] = snap.Draft
	}
	if snap.ActionResult != nil {
		resp["action_result"] = snap.ActionResult
	}
	if snap.FailStage != "" {
		resp["fail_stage"] = string(snap.FailStage)
	}
	if snap.FailReason != "" {
		resp["fail_reason"] = snap.FailReason
	}
	if snap.FinishedAt != nil {
		resp["finished_at"] = snap.FinishedAt
	}

	stages := make(map[string]gin.H, len(snap.Stages))
	for stage, st := range snap.Stages {
		stages[string(stage)] = gin.H{
			"attempts":    st.Attempts,
			"duration_ms": st.Duration.Milliseconds(),
		}
	}
	if len(stages) > 0 {
		resp["stages"] = stages
	}

	return resp
}
