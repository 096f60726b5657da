package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	promptdomain "birdreel-server/internal/domain/prompt"
	"birdreel-server/internal/domain/video"
	"birdreel-server/internal/infrastructure/metrics"
	"birdreel-server/internal/interfaces/httpserver/responses"
	"birdreel-server/utils/downloadtoken"
)

// VideoHandler exposes the video lifecycle endpoints.
type VideoHandler struct {
	cfg     *config.Config
	service *video.Service
	prompts *promptdomain.Service
	signer  *downloadtoken.Signer
	log     zerolog.Logger
}

func NewVideoHandler(cfg *config.Config, service *video.Service, prompts *promptdomain.Service, signer *downloadtoken.Signer, log zerolog.Logger) *VideoHandler {
	return &VideoHandler{
		cfg:     cfg,
		service: service,
		prompts: prompts,
		signer:  signer,
		log:     log.With().Str("component", "video-handler").Logger(),
	}
}

type generateResponse struct {
	Success bool   `json:"success"`
	VideoID string `json:"videoId"`
	Status  string `json:"status"`
}

type videoItem struct {
	ID           string  `json:"id"`
	Prompt       string  `json:"prompt,omitempty"`
	Status       string  `json:"status"`
	Error        *string `json:"error,omitempty"`
	Duration     int     `json:"duration"`
	StreamURL    string  `json:"stream_url,omitempty"`
	DownloadURL  string  `json:"download_url,omitempty"`
	CreatedAt    string  `json:"created_at"`
	DownloadedAt string  `json:"downloaded_at,omitempty"`
}

type listResponse struct {
	Success bool        `json:"success"`
	Videos  []videoItem `json:"videos"`
}

type statusResponse struct {
	Success   bool                `json:"success"`
	Counts    []video.StatusCount `json:"counts"`
	Processed int                 `json:"processed,omitempty"`
}

// Generate godoc
// @Summary      Request a new video
// @Description  Starts a generation operation, persists a pending record and enqueues it. Returns before the operation finishes.
// @Tags         videos
// @Accept       json
// @Produce      json
// @Param        request  body      video.GenerateRequest  true  "Generation request"
// @Success      202      {object}  generateResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Router       /v1/videos [post]
func (h *VideoHandler) Generate(c *gin.Context) {
	var req video.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// A bare prompt_id is also accepted; the prompt text is resolved
		// from the stored pool.
		responses.AbortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Prompt == "" && req.PromptID != nil {
		p, err := h.prompts.Get(c.Request.Context(), *req.PromptID)
		if err != nil || p == nil {
			responses.AbortWithError(c, http.StatusBadRequest, "unknown prompt_id")
			return
		}
		req.Prompt = p.Prompt
	}
	if req.Prompt == "" {
		responses.AbortWithError(c, http.StatusBadRequest, "prompt is required")
		return
	}

	rec, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("generate failed")
		responses.AbortWithError(c, http.StatusBadGateway, "failed to start generation")
		return
	}

	c.JSON(http.StatusAccepted, generateResponse{
		Success: true,
		VideoID: rec.ID,
		Status:  "queued",
	})
}

// List godoc
// @Summary      List videos
// @Description  Returns the newest video records with stream and signed download URLs.
// @Tags         videos
// @Produce      json
// @Param        limit  query     int  false  "Maximum records"  default(50)
// @Success      200    {object}  listResponse
// @Router       /v1/videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	records, err := h.service.ListRecords(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list failed")
		responses.AbortInternal(c)
		return
	}

	items := make([]videoItem, 0, len(records))
	for _, rec := range records {
		items = append(items, h.toItem(c, rec))
	}
	c.JSON(http.StatusOK, listResponse{Success: true, Videos: items})
}

// Get godoc
// @Summary      Get one video
// @Tags         videos
// @Produce      json
// @Param        id   path      string  true  "Video ID"
// @Success      200  {object}  videoItem
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      424  {object}  responses.ErrorResponse
// @Router       /v1/videos/{id} [get]
func (h *VideoHandler) Get(c *gin.Context) {
	rec, err := h.service.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			responses.AbortWithError(c, http.StatusNotFound, "video not found")
			return
		}
		responses.AbortInternal(c)
		return
	}

	if rec.Status == video.StatusFailed {
		msg := "video generation failed"
		if rec.Error != nil {
			msg = *rec.Error
		}
		responses.AbortWithError(c, http.StatusFailedDependency, msg)
		return
	}

	c.JSON(http.StatusOK, h.toItem(c, rec))
}

// Status godoc
// @Summary      Status summary
// @Description  Per-status record counts. With update=true an inline reconciliation pass runs first.
// @Tags         videos
// @Produce      json
// @Param        update  query     bool  false  "Run a sweep before counting"
// @Success      200     {object}  statusResponse
// @Router       /v1/videos/status [get]
func (h *VideoHandler) Status(c *gin.Context) {
	processed := 0
	if c.Query("update") == "true" {
		processed = h.service.SweepOnce(c.Request.Context())
	}

	counts, err := h.service.StatusCounts(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("status counts failed")
		responses.AbortInternal(c)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Success: true, Counts: counts, Processed: processed})
}

// Stream godoc
// @Summary      Stream video bytes
// @Description  Serves the durable copy with byte-range support. Never redirects to the upstream URL.
// @Tags         videos
// @Produce      video/mp4
// @Param        id     path    string  true   "Video ID"
// @Param        Range  header  string  false  "bytes=start-end"
// @Success      200  "full content"
// @Success      206  "partial content"
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/videos/{id}/stream [get]
func (h *VideoHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	start := time.Now()

	byteRange, err := parseRangeHeader(c.GetHeader("Range"))
	if err != nil {
		responses.AbortWithError(c, http.StatusRequestedRangeNotSatisfiable, "invalid range")
		return
	}

	obj, _, err := h.service.OpenObject(c.Request.Context(), id, byteRange)
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			responses.AbortWithError(c, http.StatusNotFound, "video not found")
			return
		}
		if errors.Is(err, video.ErrNotAvailable) {
			responses.AbortWithError(c, http.StatusNotFound, "video not available for streaming")
			return
		}
		h.log.Error().Err(err).Str("video_id", id).Msg("open object failed")
		responses.AbortWithError(c, http.StatusNotFound, "video file not found")
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	c.Header("Content-Type", contentType)
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))

	status := http.StatusOK
	if obj.Partial && byteRange != nil {
		status = http.StatusPartialContent
		end := byteRange.Start + obj.Size - 1
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", byteRange.Start, end, obj.TotalSize))
	}
	c.Status(status)

	written, err := io.Copy(c.Writer, obj.Body)
	if err != nil {
		h.log.Warn().Err(err).Str("video_id", id).Msg("stream interrupted")
	}
	metrics.StreamBytesTotal.Add(float64(written))
	metrics.RecordRequest(http.MethodGet, "/v1/videos/:id/stream", strconv.Itoa(status), time.Since(start).Seconds())
}

// Download godoc
// @Summary      Download video
// @Description  Serves the durable copy as an attachment. A signed token is required when token signing is configured. Records without a durable copy redirect to their legacy URL when one exists.
// @Tags         videos
// @Produce      video/mp4
// @Param        id     path   string  true   "Video ID"
// @Param        token  query  string  false  "Signed download token"
// @Success      200  "attachment"
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/videos/{id}/download [get]
func (h *VideoHandler) Download(c *gin.Context) {
	id := c.Param("id")

	if h.signer.Enabled() {
		if err := h.signer.Validate(c.Query("token"), id); err != nil {
			responses.AbortWithError(c, http.StatusUnauthorized, "invalid download token")
			return
		}
	}

	obj, rec, err := h.service.OpenObject(c.Request.Context(), id, nil)
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			responses.AbortWithError(c, http.StatusNotFound, "video not found")
			return
		}
		if errors.Is(err, video.ErrNotAvailable) {
			// Bridge for records created before durable copies existed.
			if rec != nil && rec.VideoURL != nil && *rec.VideoURL != "" {
				c.Redirect(http.StatusFound, *rec.VideoURL)
				return
			}
			responses.AbortWithError(c, http.StatusNotFound, "video not available")
			return
		}
		h.log.Error().Err(err).Str("video_id", id).Msg("open object failed")
		responses.AbortWithError(c, http.StatusNotFound, "video file not found")
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bird-"+id+".mp4"))
	c.Status(http.StatusOK)

	written, err := io.Copy(c.Writer, obj.Body)
	if err != nil {
		h.log.Warn().Err(err).Str("video_id", id).Msg("download interrupted")
	}
	metrics.StreamBytesTotal.Add(float64(written))
}

// PollVideos godoc
// @Summary      Trigger a reconciliation sweep
// @Description  Manual sweep invocation for development. Disabled in production.
// @Tags         videos
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  responses.ErrorResponse
// @Router       /poll-videos [get]
func (h *VideoHandler) PollVideos(c *gin.Context) {
	if h.cfg.IsProduction() {
		responses.AbortWithError(c, http.StatusForbidden, "manual sweep is disabled in production")
		return
	}
	processed := h.service.SweepOnce(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "processed": processed})
}

func (h *VideoHandler) toItem(c *gin.Context, rec *video.Record) videoItem {
	item := videoItem{
		ID:        rec.ID,
		Status:    string(rec.Status),
		Error:     rec.Error,
		Duration:  rec.Duration,
		CreatedAt: time.UnixMilli(rec.CreatedAt).UTC().Format(time.RFC3339),
	}
	if rec.DownloadedAt != nil {
		item.DownloadedAt = time.UnixMilli(*rec.DownloadedAt).UTC().Format(time.RFC3339)
	}
	if rec.PromptID != nil {
		if p, err := h.prompts.Get(c.Request.Context(), *rec.PromptID); err == nil && p != nil {
			item.Prompt = p.Prompt
		}
	}
	if rec.Downloadable() {
		item.StreamURL = fmt.Sprintf("/v1/videos/%s/stream", rec.ID)
		downloadURL := fmt.Sprintf("/v1/videos/%s/download", rec.ID)
		if h.signer.Enabled() {
			if token, err := h.signer.Sign(rec.ID); err == nil {
				downloadURL += "?token=" + token
			}
		}
		item.DownloadURL = downloadURL
	}
	return item
}

// parseRangeHeader parses a single "bytes=start-end" range. An empty header
// returns (nil, nil); multi-range requests are not supported.
func parseRangeHeader(header string) (*video.ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil, fmt.Errorf("unsupported range: %s", header)
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return nil, fmt.Errorf("malformed range: %s", header)
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return nil, fmt.Errorf("malformed range start: %s", header)
	}

	end := int64(-1)
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < start {
			return nil, fmt.Errorf("malformed range end: %s", header)
		}
	}
	return &video.ByteRange{Start: start, End: end}, nil
}
