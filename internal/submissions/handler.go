package submissions

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"career-curve/internal/llm"
	"career-curve/internal/ranking"
	"career-curve/internal/shared/server/respond"
)

const (
	defaultMaxUploadBytes = 10 << 20
	multipartOverhead     = 1 << 20
)

// Handler wires the analyze endpoint to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches submission routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "resume file is too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "resume file is too large", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	role := strings.TrimSpace(c.PostForm("target_role"))
	if role == "" {
		role = DefaultRole
	}
	c.Set("role", role)

	res, err := h.Svc.Submit(c.Request.Context(), Submission{
		FileName:       fileHeader.Filename,
		Data:           data,
		TargetRole:     role,
		JobDescription: c.PostForm("jd"),
		RequestID:      c.GetString("requestId"),
	})
	if err != nil {
		h.writeError(c, err, res)
		return
	}

	c.Set("rankPercent", res.Rank.Percent)
	c.Set("total", res.Rank.Total)
	respond.OK(c, toResponse(res))
}

func (h *Handler) writeError(c *gin.Context, err error, res Result) {
	switch {
	case errors.Is(err, ErrUnsupportedFile):
		respond.Error(c, http.StatusBadRequest, "unsupported_file", "only PDF and DOCX resumes are supported", nil)
	case errors.Is(err, ErrEmptyText):
		respond.Error(c, http.StatusBadRequest, "empty_text", "no text could be extracted from the resume", nil)
	case errors.Is(err, ErrExtractFailed):
		respond.Error(c, http.StatusBadRequest, "extract_failed", "unable to read the resume file; re-save it as PDF or DOCX and retry", nil)
	case errors.Is(err, ErrUploadFailed):
		respond.Error(c, http.StatusInternalServerError, "upload_failed", "failed to store the resume", nil)
	case errors.Is(err, llm.ErrSchemaMismatch):
		respond.Error(c, http.StatusBadGateway, "llm_schema_mismatch", "scoring model returned an unusable result", nil)
	case errors.Is(err, ErrLLM):
		respond.Error(c, http.StatusBadGateway, "llm_error", "scoring model request failed", nil)
	case errors.Is(err, ranking.ErrInvalidScore):
		respond.Error(c, http.StatusBadGateway, "invalid_score", "scoring model returned an out-of-range score", nil)
	case errors.Is(err, ranking.ErrStoreUnavailable):
		details := toResponse(res)
		details.Saved = true
		respond.Error(c, http.StatusServiceUnavailable, "rank_unavailable", "score saved but ranking is temporarily unavailable", details)
	case errors.Is(err, ranking.ErrStoreWriteFailed):
		respond.Error(c, http.StatusInternalServerError, "not_saved", "score could not be saved", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze resume", nil)
	}
}
