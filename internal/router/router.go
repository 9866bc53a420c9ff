package router

import (
	"github.com/gin-gonic/gin"

	"ansible-bootstrap/internal/handler"
)

func RegisterRoutes(r *gin.Engine, setupHandler *handler.SetupHandler, verifyHandler *handler.VerifyHandler) {
	api := r.Group("/api")
	{
		ansible := api.Group("/ansible")
		{
			ansible.POST("/setup", setupHandler.Setup)
			ansible.GET("/progress/:taskId", setupHandler.Progress)
			ansible.GET("/progress/:taskId/ws", setupHandler.ProgressStream)
			ansible.POST("/verify", verifyHandler.Verify)
		}
	}
}
