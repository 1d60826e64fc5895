package api

import (
	"net/http"

	"go-quest/internal/config"
	"go-quest/internal/llm"

	"github.com/gin-gonic/gin"
)

// GET /health
func healthHandler(manager *llm.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"status": "ok"}
		if manager != nil {
			evaluator := gin.H{"queue": manager.GetMetrics()}
			if breaker := manager.Breaker(); breaker != nil {
				evaluator["breaker"] = breaker.Stats()
			}
			resp["evaluator"] = evaluator
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GET /config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":    cfg.Server.Host,
				"port":    cfg.Server.Port,
				"subpath": cfg.Server.Subpath,
			},
			"storage": cfg.Storage.Driver,
			"evaluator": gin.H{
				"model":           cfg.Evaluator.Model,
				"interval":        cfg.Evaluator.Interval,
				"timeout":         cfg.Evaluator.Timeout,
				"generate_graphs": cfg.Evaluator.GenerateGraphs,
			},
		})
	}
}
