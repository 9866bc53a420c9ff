package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ansible-bootstrap/internal/config"
	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/service"
	"ansible-bootstrap/pkg/utils"
)

type VerifyHandler struct {
	cfg    *config.Config
	verify func(ctx context.Context) (model.VerifyReport, error)
}

func NewVerifyHandler(cfg *config.Config) *VerifyHandler {
	h := &VerifyHandler{cfg: cfg}
	h.verify = h.runVerification
	return h
}

// Verify runs every check synchronously. A failed check is reported in the
// body; only an internal error yields a non-200 status.
func (h *VerifyHandler) Verify(c *gin.Context) {
	report, err := h.verify(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, utils.NewSystemError(err))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *VerifyHandler) runVerification(ctx context.Context) (model.VerifyReport, error) {
	log, err := logger.NewLogger(logger.Options{
		File:  h.cfg.Files.VerifyLog,
		Level: h.cfg.Logging.Level,
	})
	if err != nil {
		return model.VerifyReport{}, err
	}
	defer log.Close()

	return service.BuildVerifier(h.cfg, log).Verify(ctx), nil
}
