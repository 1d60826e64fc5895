package quest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// OrchestratorConfig carries the runtime knobs of the orchestrator
type OrchestratorConfig struct {
	Session SessionConfig
	Debug   bool
}

// Orchestrator owns the registry of live quest sessions
type Orchestrator struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	templates map[string]Template

	// Components
	Generator    *Generator
	StateMachine *StateMachine
	Rewards      *RewardCalculator
	Logger       *QuestSystemLogger

	// Bridges
	Evaluator   Evaluator   // nil runs the fallback only
	GraphSource GraphSource // nil generates from templates only
	Repo        Repository  // nil keeps quests in memory only

	cfg    OrchestratorConfig
	ctx    context.Context
	cancel context.CancelFunc
}

// NewOrchestrator creates a new quest orchestrator
func NewOrchestrator(cfg OrchestratorConfig, evaluator Evaluator, source GraphSource, repo Repository) *Orchestrator {
	logger := NewQuestSystemLogger(cfg.Debug)
	rewards := NewRewardCalculator()
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		sessions:     make(map[string]*Session),
		templates:    make(map[string]Template),
		Generator:    NewGenerator(logger),
		StateMachine: NewStateMachine(rewards, logger),
		Rewards:      rewards,
		Logger:       logger,
		Evaluator:    evaluator,
		GraphSource:  source,
		Repo:         repo,
		cfg:          cfg,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// AddObserver registers an observer for every quest
func (o *Orchestrator) AddObserver(obs Observer) {
	o.StateMachine.AddObserver(obs)
}

// SetClock overrides the time source of the state machine and generator
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.StateMachine.SetClock(now)
	o.Generator.now = now
}

// --- Templates ---

// RegisterTemplate adds or replaces a quest template
func (o *Orchestrator) RegisterTemplate(t Template) error {
	if t.ID == "" {
		return fmt.Errorf("template id must be set")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.templates[t.ID] = t
	return nil
}

// Template returns a registered template
func (o *Orchestrator) Template(id string) (Template, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

// Templates lists registered templates
func (o *Orchestrator) Templates() []Template {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Template, 0, len(o.templates))
	for _, t := range o.templates {
		out = append(out, t)
	}
	return out
}

// --- Creation ---

// CreateFromTemplate generates a pending quest from a registered template
func (o *Orchestrator) CreateFromTemplate(ctx context.Context, templateID string) (*Quest, error) {
	t, err := o.Template(templateID)
	if err != nil {
		return nil, err
	}
	return o.register(ctx, o.Generator.GenerateFromTemplate(t))
}

// CreateFromGraph generates a pending quest from a supplied objective graph
func (o *Orchestrator) CreateFromGraph(ctx context.Context, templateID string, graph *MissionGraph) (*Quest, error) {
	t, err := o.Template(templateID)
	if err != nil {
		return nil, err
	}
	return o.register(ctx, o.Generator.GenerateFromAIGraph(graph, t))
}

// CreateFromSource asks the graph source for objectives, falling back to the template
func (o *Orchestrator) CreateFromSource(ctx context.Context, templateID string) (*Quest, error) {
	t, err := o.Template(templateID)
	if err != nil {
		return nil, err
	}
	return o.register(ctx, o.Generator.GenerateFromSource(ctx, o.GraphSource, t))
}

func (o *Orchestrator) register(ctx context.Context, q *Quest) (*Quest, error) {
	if o.Repo != nil {
		if err := o.Repo.Save(ctx, q); err != nil {
			return nil, fmt.Errorf("failed to store quest %s: %w", q.ID, err)
		}
	}
	s := o.newSession(q)
	o.mu.Lock()
	o.sessions[q.ID] = s
	o.mu.Unlock()
	return q.Clone(), nil
}

func (o *Orchestrator) newSession(q *Quest) *Session {
	s := NewSession(o.ctx, q, o.StateMachine, o.Evaluator, o.cfg.Session, o.Logger)
	if o.Repo != nil {
		s.onChange = o.persist
	}
	return s
}

// persist runs under the session lock after every mutation
func (o *Orchestrator) persist(q *Quest) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Repo.Save(ctx, q); err != nil {
		o.Logger.LogError("persist_quest", err, map[string]interface{}{"quest_id": q.ID})
	}
}

// --- Lookup ---

// Session returns the live session of a quest, loading it from the repository if needed
func (o *Orchestrator) Session(ctx context.Context, id string) (*Session, error) {
	o.mu.RLock()
	s, ok := o.sessions[id]
	o.mu.RUnlock()
	if ok {
		return s, nil
	}
	if o.Repo == nil {
		return nil, fmt.Errorf("%w: %s", ErrQuestNotFound, id)
	}

	q, err := o.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.sessions[id]; ok {
		return existing, nil
	}
	s = o.newSession(q)
	o.sessions[id] = s
	if q.Status == StatusActive {
		s.Start()
	}
	return s, nil
}

// Get returns a copy of the quest
func (o *Orchestrator) Get(ctx context.Context, id string) (*Quest, error) {
	s, err := o.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Quest(), nil
}

// List returns copies of all quests held in memory
func (o *Orchestrator) List() []*Quest {
	o.mu.RLock()
	sessions := make([]*Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		sessions = append(sessions, s)
	}
	o.mu.RUnlock()

	out := make([]*Quest, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Quest())
	}
	return out
}

// Progress returns the progress summary of a quest
func (o *Orchestrator) Progress(ctx context.Context, id string) (QuestProgress, error) {
	q, err := o.Get(ctx, id)
	if err != nil {
		return QuestProgress{}, err
	}
	return q.Progress(), nil
}

// --- Lifecycle ---

// Offer presents a quest to the player
func (o *Orchestrator) Offer(ctx context.Context, id string, player OfferContext, reason string) error {
	s, err := o.Session(ctx, id)
	if err != nil {
		return err
	}
	completed, err := o.completedQuests(ctx, id, s.Quest().Requirements.RequiredQuests)
	if err != nil {
		return err
	}
	player.CompletedQuests = completed
	return s.Offer(player, reason)
}

// completedQuests returns the ids among required that are COMPLETED. Each
// lookup takes only that quest's lock, so offers never hold two sessions.
func (o *Orchestrator) completedQuests(ctx context.Context, self string, required []string) ([]string, error) {
	var done []string
	for _, id := range required {
		if id == self {
			continue
		}
		q, err := o.Get(ctx, id)
		if errors.Is(err, ErrQuestNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check required quest %s: %w", id, err)
		}
		if q.Status == StatusCompleted {
			done = append(done, id)
		}
	}
	return done, nil
}

// Accept activates an offered quest and starts its evaluation timer
func (o *Orchestrator) Accept(ctx context.Context, id, reason string) error {
	s, err := o.Session(ctx, id)
	if err != nil {
		return err
	}
	return s.Accept(reason)
}

// Abandon stops a quest. Objectives keep their progress.
func (o *Orchestrator) Abandon(ctx context.Context, id, reason string) error {
	s, err := o.Session(ctx, id)
	if err != nil {
		return err
	}
	return s.Abandon(reason)
}

// --- World events ---

// RecordObjectiveProgress applies a progress count to an objective
func (o *Orchestrator) RecordObjectiveProgress(ctx context.Context, questID, objectiveID string, count int) (bool, error) {
	s, err := o.Session(ctx, questID)
	if err != nil {
		return false, err
	}
	return s.RecordObjectiveProgress(objectiveID, count)
}

// RecordContribution attributes an objective to a participant
func (o *Orchestrator) RecordContribution(ctx context.Context, questID, participantID, objectiveID, contributionType string) (Participant, error) {
	s, err := o.Session(ctx, questID)
	if err != nil {
		return Participant{}, err
	}
	return s.RecordContribution(participantID, objectiveID, contributionType)
}

// AddParticipant joins a participant to a quest
func (o *Orchestrator) AddParticipant(ctx context.Context, questID, participantID string, role Role) (Participant, error) {
	s, err := o.Session(ctx, questID)
	if err != nil {
		return Participant{}, err
	}
	return s.AddParticipant(participantID, role), nil
}

// RecordAlternativeCompletion appends to a completion method's history
func (o *Orchestrator) RecordAlternativeCompletion(ctx context.Context, questID, method string, data map[string]interface{}) error {
	s, err := o.Session(ctx, questID)
	if err != nil {
		return err
	}
	return s.RecordAlternativeCompletion(method, data)
}

// RecordPlayerChoice appends a player decision to the quest's AI context
func (o *Orchestrator) RecordPlayerChoice(ctx context.Context, questID, choice string) error {
	s, err := o.Session(ctx, questID)
	if err != nil {
		return err
	}
	s.RecordPlayerChoice(choice)
	return nil
}

// RecordConversation appends a dialogue line to the quest's AI context
func (o *Orchestrator) RecordConversation(ctx context.Context, questID, line string) error {
	s, err := o.Session(ctx, questID)
	if err != nil {
		return err
	}
	s.RecordConversation(line)
	return nil
}

// Evaluate runs an evaluation cycle right away
func (o *Orchestrator) Evaluate(ctx context.Context, questID string) (bool, error) {
	s, err := o.Session(ctx, questID)
	if err != nil {
		return false, err
	}
	if s.Status() != StatusActive {
		return false, fmt.Errorf("%w: %s", ErrQuestNotActive, questID)
	}
	return s.Evaluate(o.ctx), nil
}

// --- Startup / shutdown ---

// Resume loads active quests from the repository and re-arms their timers
func (o *Orchestrator) Resume(ctx context.Context) (int, error) {
	if o.Repo == nil {
		return 0, nil
	}
	quests, err := o.Repo.ListByStatus(ctx, StatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to list active quests: %w", err)
	}

	resumed := 0
	for _, q := range quests {
		o.mu.Lock()
		if _, exists := o.sessions[q.ID]; exists {
			o.mu.Unlock()
			continue
		}
		s := o.newSession(q)
		o.sessions[q.ID] = s
		o.mu.Unlock()

		s.Start()
		resumed++
	}
	log.Printf("[Orchestrator] Resumed %d active quests", resumed)
	return resumed, nil
}

// Shutdown stops every timer and waits for in-flight evaluations
func (o *Orchestrator) Shutdown() {
	o.cancel()

	o.mu.RLock()
	sessions := make([]*Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		sessions = append(sessions, s)
	}
	o.mu.RUnlock()

	for _, s := range sessions {
		s.Stop()
		s.Wait()
	}
	log.Printf("[Orchestrator] Shut down %d sessions", len(sessions))
}

// IsNotFound reports whether err means the quest or objective does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuestNotFound) || errors.Is(err, ErrObjectiveNotFound) || errors.Is(err, ErrTemplateNotFound)
}
