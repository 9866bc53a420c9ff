package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ansible-bootstrap/internal/config"
	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/service"
	"ansible-bootstrap/pkg/utils"
)

const defaultPollInterval = 500 * time.Millisecond

type SetupHandler struct {
	cfg          *config.Config
	tasks        *service.TaskService
	upgrader     websocket.Upgrader
	pollInterval time.Duration

	// start runs one setup task to completion.
	start func(taskID string, req model.SetupRequest)
	// runs share inventory.yml and ansible.cfg, so they are serialized.
	runMu sync.Mutex
}

func NewSetupHandler(cfg *config.Config, tasks *service.TaskService) *SetupHandler {
	h := &SetupHandler{
		cfg:          cfg,
		tasks:        tasks,
		pollInterval: defaultPollInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigin(cfg.Server.AllowOrigins, r.Header.Get("Origin"))
			},
		},
	}
	h.start = h.runSetup
	return h
}

func (h *SetupHandler) Setup(c *gin.Context) {
	var req model.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, utils.NewValidationError("body", err))
		return
	}
	if err := utils.ValidateHosts(req.Master, req.Workers); err != nil {
		respondError(c, http.StatusBadRequest, utils.NewValidationError("hosts", err))
		return
	}

	taskID := h.tasks.Create("Ansible setup started")
	go h.start(taskID, req)

	c.JSON(http.StatusOK, model.SetupResponse{
		Success: true,
		TaskID:  taskID,
		Message: "Ansible setup started",
	})
}

func (h *SetupHandler) Progress(c *gin.Context) {
	taskID := c.Param("taskId")
	progress, ok := h.tasks.Get(taskID)
	if !ok {
		respondError(c, http.StatusNotFound, utils.NewNotFoundError("task", taskID))
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ProgressStream pushes new log lines as they arrive and a final status frame
// once the task is no longer running.
func (h *SetupHandler) ProgressStream(c *gin.Context) {
	taskID := c.Param("taskId")
	if _, ok := h.tasks.Get(taskID); !ok {
		respondError(c, http.StatusNotFound, utils.NewNotFoundError("task", taskID))
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	sent := 0
	for {
		progress, _ := h.tasks.Get(taskID)
		for ; sent < len(progress.Logs); sent++ {
			if err := ws.WriteJSON(model.ProgressEvent{Type: "log", Line: progress.Logs[sent]}); err != nil {
				return
			}
		}

		if progress.Status != model.StatusRunning {
			_ = ws.WriteJSON(model.ProgressEvent{Type: "status", Progress: &progress})
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, progress.Status))
			return
		}

		select {
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}

func (h *SetupHandler) runSetup(taskID string, req model.SetupRequest) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	log, err := logger.NewLogger(logger.Options{
		File:  h.cfg.Files.SetupLog,
		Level: h.cfg.Logging.Level,
		Extra: h.tasks.Writer(taskID),
	})
	if err != nil {
		h.tasks.Update(taskID, func(p *model.ProgressResponse) {
			p.Error = utils.NewSystemError(err).Error()
		})
		h.tasks.Finish(taskID, false, "Ansible setup failed")
		return
	}
	defer log.Close()

	fleet := service.BuildFleet(h.cfg, req.Cluster(h.cfg.SSH.DefaultUser), req.Password, log)
	fleet.OnProgress(func(step string, index, total int, err error) {
		h.tasks.Update(taskID, func(p *model.ProgressResponse) {
			p.Step = step
			p.Progress = float64(index*100) / float64(total)
			if err != nil {
				p.Error = utils.NewSetupError(step, err).Error()
			}
		})
	})

	if fleet.SetupAnsible(context.Background()) {
		h.tasks.Finish(taskID, true, "Ansible setup completed successfully")
		return
	}
	h.tasks.Finish(taskID, false, "Ansible setup failed")
}

func allowedOrigin(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func respondError(c *gin.Context, status int, err *utils.APIError) {
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Code:    err.Code,
		Message: err.Message,
		Details: err.Details,
	})
}
