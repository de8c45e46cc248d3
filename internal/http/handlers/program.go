package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumikids/radiogen-backend/internal/http/response"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
	"github.com/lumikids/radiogen-backend/internal/services"
)

type ProgramHandler struct {
	log      *logger.Logger
	programs services.RadioProgramService
}

func NewProgramHandler(log *logger.Logger, programs services.RadioProgramService) *ProgramHandler {
	return &ProgramHandler{
		log:      log.With("handler", "ProgramHandler"),
		programs: programs,
	}
}

type recordingPayload struct {
	Filename   string `json:"filename" binding:"required"`
	URL        string `json:"url" binding:"required"`
	QuestionID string `json:"questionId"`
	Timestamp  int64  `json:"timestamp"`
}

type programRequest struct {
	World      string             `json:"world" binding:"required"`
	LMID       string             `json:"lmid" binding:"required"`
	Variant    string             `json:"variant" binding:"required"`
	Language   string             `json:"language"`
	Recordings []recordingPayload `json:"recordings"`
}

func (r programRequest) identity() (program.Identity, error) {
	variant, err := program.ParseVariant(r.Variant)
	if err != nil {
		return program.Identity{}, err
	}
	id := program.Identity{
		World:    r.World,
		LMID:     r.LMID,
		Variant:  variant,
		Language: r.Language,
	}
	return id, id.Validate()
}

func (r programRequest) recordings() []program.Recording {
	out := make([]program.Recording, 0, len(r.Recordings))
	for _, rec := range r.Recordings {
		out = append(out, program.Recording{
			Filename:   rec.Filename,
			URL:        rec.URL,
			QuestionID: rec.QuestionID,
			Timestamp:  rec.Timestamp,
		})
	}
	return out
}

// POST /api/programs/generate
func (h *ProgramHandler) Generate(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := req.identity()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_identity", err)
		return
	}
	recordings := req.recordings()

	res, err := h.programs.Generate(c.Request.Context(), services.GenerateRequest{
		Identity:   id,
		Recordings: recordings,
	})
	if err != nil {
		h.respondGenerateError(c, id, recordings, err)
		return
	}

	response.RespondOK(c, gin.H{
		"url":          res.URL,
		"manifest":     res.Manifest,
		"skippedFiles": res.SkippedFiles,
	})
}

// POST /api/programs/status
func (h *ProgramHandler) Status(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := req.identity()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_identity", err)
		return
	}
	status, err := h.programs.Status(c.Request.Context(), id, req.recordings())
	if err != nil {
		h.log.Error("status check failed", "program_key", id.String(), "error", err)
		response.RespondError(c, http.StatusInternalServerError, "status_failed", errInternal)
		return
	}
	response.RespondOK(c, statusPayload(status))
}

// Clients get a stable message; the underlying error stays in the logs.
var errInternal = fmt.Errorf("program generation failed")

func (h *ProgramHandler) respondGenerateError(c *gin.Context, id program.Identity, recordings []program.Recording, err error) {
	key := id.String()
	switch {
	case errors.Is(err, program.ErrNoRecordings):
		response.RespondError(c, http.StatusBadRequest, "no_recordings", err)

	case errors.Is(err, program.ErrGenerationInProgress):
		payload := gin.H{
			"error": response.APIError{
				Message: err.Error(),
				Code:    "generation_in_progress",
			},
		}
		if status, stErr := h.programs.Status(c.Request.Context(), id, recordings); stErr == nil && status != nil {
			payload["status"] = statusPayload(status)
		}
		c.JSON(http.StatusConflict, payload)

	default:
		var fe *program.FetchError
		if errors.As(err, &fe) {
			h.log.Error("recording fetch failed", "program_key", key, "url", fe.URL, "error", err)
			response.RespondError(c, http.StatusBadGateway, "recording_fetch_failed", errInternal)
			return
		}
		h.log.Error("generation failed", "program_key", key, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "processing_failed", errInternal)
	}
}

func statusPayload(status *services.ProgramStatus) gin.H {
	return gin.H{
		"inProgress":      status.InProgress,
		"ageSeconds":      status.AgeSeconds,
		"requestId":       status.RequestID,
		"snapshotChanged": status.SnapshotChanged,
	}
}
