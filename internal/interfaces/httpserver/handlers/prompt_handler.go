package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"birdreel-server/internal/domain/prompt"
	"birdreel-server/internal/interfaces/httpserver/responses"
)

// PromptHandler exposes the prompt pool endpoints.
type PromptHandler struct {
	service *prompt.Service
	log     zerolog.Logger
}

func NewPromptHandler(service *prompt.Service, log zerolog.Logger) *PromptHandler {
	return &PromptHandler{
		service: service,
		log:     log.With().Str("component", "prompt-handler").Logger(),
	}
}

// Top godoc
// @Summary      Top prompts
// @Description  Returns the highest scoring prompt ideas.
// @Tags         prompts
// @Produce      json
// @Param        limit  query     int  false  "Maximum prompts"  default(10)
// @Success      200    {object}  map[string]interface{}
// @Router       /v1/prompts/top [get]
func (h *PromptHandler) Top(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	prompts, err := h.service.Top(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("top prompts failed")
		responses.AbortInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prompts": prompts})
}

// Refresh godoc
// @Summary      Refresh the prompt pool
// @Description  Generates a new batch of prompt ideas and stores the unique ones.
// @Tags         prompts
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /v1/prompts/generate [post]
func (h *PromptHandler) Refresh(c *gin.Context) {
	stored, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("prompt refresh failed")
		responses.AbortWithError(c, http.StatusBadGateway, "prompt refresh failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stored": stored})
}
