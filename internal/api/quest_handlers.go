package api

import (
	"context"
	"net/http"
	"sort"

	"go-quest/internal/quest"

	"github.com/gin-gonic/gin"
)

// QuestHandlers exposes the orchestrator over HTTP
type QuestHandlers struct {
	orch *quest.Orchestrator
}

func NewQuestHandlers(orch *quest.Orchestrator) *QuestHandlers {
	return &QuestHandlers{orch: orch}
}

// GET /templates
func (h *QuestHandlers) ListTemplates(c *gin.Context) {
	templates := h.orch.Templates()
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	c.JSON(http.StatusOK, templates)
}

// POST /templates
func (h *QuestHandlers) RegisterTemplate(c *gin.Context) {
	var t quest.Template
	if err := c.ShouldBindJSON(&t); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.orch.RegisterTemplate(t); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type createQuestRequest struct {
	TemplateID string              `json:"template_id" binding:"required"`
	Graph      *quest.MissionGraph `json:"graph"`
	Generate   bool                `json:"generate"` // ask the graph source for objectives
}

// POST /quests
func (h *QuestHandlers) CreateQuest(c *gin.Context) {
	var req createQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		q   *quest.Quest
		err error
	)
	switch {
	case req.Graph != nil:
		q, err = h.orch.CreateFromGraph(c.Request.Context(), req.TemplateID, req.Graph)
	case req.Generate:
		q, err = h.orch.CreateFromSource(c.Request.Context(), req.TemplateID)
	default:
		q, err = h.orch.CreateFromTemplate(c.Request.Context(), req.TemplateID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// GET /quests?status=ACTIVE
func (h *QuestHandlers) ListQuests(c *gin.Context) {
	status := quest.Status(c.Query("status"))
	quests := h.orch.List()
	out := make([]*quest.Quest, 0, len(quests))
	for _, q := range quests {
		if status != "" && q.Status != status {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	c.JSON(http.StatusOK, out)
}

// GET /quests/:id
func (h *QuestHandlers) GetQuest(c *gin.Context) {
	q, err := h.orch.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// GET /quests/:id/progress
func (h *QuestHandlers) GetProgress(c *gin.Context) {
	p, err := h.orch.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// offerRequest carries the player the quest is offered to, checked against
// the quest requirements
type offerRequest struct {
	Reason string `json:"reason"`
	quest.OfferContext
}

// bindOptionalJSON binds the body when one was sent
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength <= 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

// transition runs an accept/abandon call and returns the updated quest
func (h *QuestHandlers) transition(c *gin.Context, fn func(ctx context.Context, id, reason string) error) {
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.respondQuest(c, fn(c.Request.Context(), c.Param("id"), req.Reason))
}

func (h *QuestHandlers) respondQuest(c *gin.Context, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	q, err := h.orch.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// POST /quests/:id/offer
func (h *QuestHandlers) Offer(c *gin.Context) {
	var req offerRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.respondQuest(c, h.orch.Offer(c.Request.Context(), c.Param("id"), req.OfferContext, req.Reason))
}

// POST /quests/:id/accept
func (h *QuestHandlers) Accept(c *gin.Context) { h.transition(c, h.orch.Accept) }

// POST /quests/:id/abandon
func (h *QuestHandlers) Abandon(c *gin.Context) { h.transition(c, h.orch.Abandon) }

type progressRequest struct {
	ObjectiveID string `json:"objective_id" binding:"required"`
	Count       int    `json:"count"`
}

// POST /quests/:id/progress
func (h *QuestHandlers) RecordProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	completed, err := h.orch.RecordObjectiveProgress(c.Request.Context(), c.Param("id"), req.ObjectiveID, req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}

type contributionRequest struct {
	ParticipantID    string `json:"participant_id" binding:"required"`
	ObjectiveID      string `json:"objective_id"`
	ContributionType string `json:"contribution_type" binding:"required"`
}

// POST /quests/:id/contributions
func (h *QuestHandlers) RecordContribution(c *gin.Context) {
	var req contributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.orch.RecordContribution(c.Request.Context(), c.Param("id"), req.ParticipantID, req.ObjectiveID, req.ContributionType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type participantRequest struct {
	ParticipantID string     `json:"participant_id" binding:"required"`
	Role          quest.Role `json:"role"`
}

// POST /quests/:id/participants
func (h *QuestHandlers) AddParticipant(c *gin.Context) {
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.orch.AddParticipant(c.Request.Context(), c.Param("id"), req.ParticipantID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type alternativeRequest struct {
	Method string                 `json:"method" binding:"required"`
	Data   map[string]interface{} `json:"data"`
}

// POST /quests/:id/alternatives
func (h *QuestHandlers) RecordAlternative(c *gin.Context) {
	var req alternativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.orch.RecordAlternativeCompletion(c.Request.Context(), c.Param("id"), req.Method, req.Data); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type choiceRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// POST /quests/:id/choices
func (h *QuestHandlers) RecordChoice(c *gin.Context) {
	var req choiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.orch.RecordPlayerChoice(c.Request.Context(), c.Param("id"), req.Choice); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type conversationRequest struct {
	Line string `json:"line" binding:"required"`
}

// POST /quests/:id/conversation
func (h *QuestHandlers) RecordConversation(c *gin.Context) {
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.orch.RecordConversation(c.Request.Context(), c.Param("id"), req.Line); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /quests/:id/evaluate
func (h *QuestHandlers) Evaluate(c *gin.Context) {
	id := c.Param("id")
	applied, err := h.orch.Evaluate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	q, err := h.orch.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "quest": q})
}
