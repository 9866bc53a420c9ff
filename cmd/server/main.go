package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ansible-bootstrap/internal/config"
	"ansible-bootstrap/internal/handler"
	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/router"
	"ansible-bootstrap/internal/service"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 初始化日志
	appLogger, err := logger.NewLogger(logger.Options{Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer appLogger.Close()

	// 初始化服务
	tasks := service.NewTaskService()

	// 初始化处理器
	setupHandler := handler.NewSetupHandler(cfg, tasks)
	verifyHandler := handler.NewVerifyHandler(cfg)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	router.RegisterRoutes(r, setupHandler, verifyHandler)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Infof("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		appLogger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
