package api

import (
	"go-quest/internal/auth"
	"go-quest/internal/config"
	"go-quest/internal/llm"
	"go-quest/internal/quest"

	"github.com/gin-gonic/gin"
)

// Deps are the services the HTTP layer exposes
type Deps struct {
	Orchestrator *quest.Orchestrator
	Hub          *Hub
	LLM          *llm.Manager // optional
}

func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.Default()
	subpath := cfg.Server.Subpath // e.g. "/quests-api", always starts with '/'

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler(deps.LLM))
		group.GET("/config", configHandler(cfg))

		if deps.Hub != nil {
			group.GET("/ws/quests", auth.AuthMiddleware(cfg, false), deps.Hub.Handler())
		}
		if deps.Orchestrator == nil {
			return r
		}
		h := NewQuestHandlers(deps.Orchestrator)

		// --- Templates ---
		group.GET("/templates", auth.AuthMiddleware(cfg, false), h.ListTemplates)
		group.POST("/templates", auth.AuthMiddleware(cfg, true), h.RegisterTemplate)

		// --- Quests ---
		quests := group.Group("/quests", auth.AuthMiddleware(cfg, false))
		quests.POST("", h.CreateQuest)
		quests.GET("", h.ListQuests)
		quests.GET("/:id", h.GetQuest)
		quests.GET("/:id/progress", h.GetProgress)

		// Lifecycle
		quests.POST("/:id/offer", h.Offer)
		quests.POST("/:id/accept", h.Accept)
		quests.POST("/:id/abandon", h.Abandon)

		// World events
		quests.POST("/:id/progress", h.RecordProgress)
		quests.POST("/:id/contributions", h.RecordContribution)
		quests.POST("/:id/participants", h.AddParticipant)
		quests.POST("/:id/alternatives", h.RecordAlternative)
		quests.POST("/:id/choices", h.RecordChoice)
		quests.POST("/:id/conversation", h.RecordConversation)

		// Manual evaluation
		quests.POST("/:id/evaluate", auth.AuthMiddleware(cfg, true), h.Evaluate)
	}
	return r
}
