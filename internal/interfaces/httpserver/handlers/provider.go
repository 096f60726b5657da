package handlers

import (
	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	promptdomain "birdreel-server/internal/domain/prompt"
	videodomain "birdreel-server/internal/domain/video"
	"birdreel-server/utils/downloadtoken"
)

// Provider wires HTTP handlers.
type Provider struct {
	Video  *VideoHandler
	Prompt *PromptHandler
}

func NewProvider(cfg *config.Config, videoService *videodomain.Service, promptService *promptdomain.Service, log zerolog.Logger) *Provider {
	signer := downloadtoken.NewSigner(cfg.DownloadTokenSecret, cfg.DownloadTokenTTL)
	return &Provider{
		Video:  NewVideoHandler(cfg, videoService, promptService, signer, log),
		Prompt: NewPromptHandler(promptService, log),
	}
}
