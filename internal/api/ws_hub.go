package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"go-quest/internal/quest"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// QuestEvent is the message pushed to websocket subscribers
type QuestEvent struct {
	Kind         string             `json:"kind"`
	QuestID      string             `json:"quest_id"`
	Change       *quest.StateChange `json:"change,omitempty"`
	Objective    *quest.Objective   `json:"objective,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Reward       *quest.Reward      `json:"reward,omitempty"`
	Participants []string           `json:"participants,omitempty"`
	Error        string             `json:"error,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsSendBuffer = 64
	wsWriteWait  = 5 * time.Second
)

type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	questID string // empty subscribes to every quest
}

// Hub fans quest notifications out to websocket subscribers. It is
// registered as an orchestrator observer; slow clients are dropped
// rather than blocking the quest.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

func (h *Hub) register(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl] = struct{}{}
}

func (h *Hub) unregister(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev QuestEvent) {
	ev.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[WS] marshal %s event: %v", ev.Kind, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		if cl.questID != "" && cl.questID != ev.QuestID {
			continue
		}
		select {
		case cl.send <- payload:
		default:
			log.Printf("[WS] subscriber too slow, disconnecting")
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

func (h *Hub) OnQuestStateChanged(change quest.StateChange) {
	h.broadcast(QuestEvent{Kind: "state_changed", QuestID: change.QuestID, Change: &change})
}

func (h *Hub) OnObjectiveAdded(questID string, objective quest.Objective, reason string) {
	h.broadcast(QuestEvent{Kind: "objective_added", QuestID: questID, Objective: &objective, Reason: reason})
}

func (h *Hub) OnRewardApplied(questID string, reward quest.Reward, participants []string) {
	h.broadcast(QuestEvent{Kind: "reward_applied", QuestID: questID, Reward: &reward, Participants: participants})
}

func (h *Hub) OnDegradedMode(questID string, cause error) {
	ev := QuestEvent{Kind: "degraded", QuestID: questID}
	if cause != nil {
		ev.Error = cause.Error()
	}
	h.broadcast(ev)
}

// Handler upgrades GET /ws/quests[?quest_id=...] to a websocket subscription
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] upgrade failed: %v", err)
			return
		}
		cl := &wsClient{
			conn:    conn,
			send:    make(chan []byte, wsSendBuffer),
			questID: c.Query("quest_id"),
		}
		h.register(cl)

		go cl.writeLoop()

		// Subscribers only listen; reading detects the close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.unregister(cl)
	}
}

func (cl *wsClient) writeLoop() {
	defer cl.conn.Close()
	for msg := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
}
