package quest

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// newQuest creates an empty pending quest
func newQuest(questType Type, title, description string, now time.Time) *Quest {
	if questType == "" {
		questType = TypeSide
	}
	return &Quest{
		ID:                     uuid.New().String(),
		Type:                   questType,
		Title:                  title,
		Description:            description,
		Status:                 StatusPending,
		Objectives:             []*Objective{},
		Participants:           []*Participant{},
		AlternativeCompletions: map[string][]AlternativeCompletion{},
		AIContext: AIContext{
			ConversationHistory: []string{},
			PlayerChoices:       []string{},
			WorldEvents:         []string{},
			DynamicBranches:     []string{},
		},
		CreatedAt: now,
	}
}

// Objective returns the objective with the given id, or nil
func (q *Quest) Objective(id string) *Objective {
	for _, o := range q.Objectives {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// addStaticObjective appends a construction-time objective. Empty and duplicate ids are rejected.
func (q *Quest) addStaticObjective(d ObjectiveDescriptor) (*Objective, bool) {
	if d.ID == "" {
		log.Printf("[Quest] Dropping objective without id in quest %s", q.ID)
		return nil, false
	}
	if q.Objective(d.ID) != nil {
		log.Printf("[Quest] Dropping duplicate objective %s in quest %s", d.ID, q.ID)
		return nil, false
	}
	o := NewObjective(d)
	q.Objectives = append(q.Objectives, o)
	return o, true
}

// AddDynamicObjective appends an evaluator-suggested objective to an active quest.
// Dynamic objectives are always optional and are never removed. A missing id is
// replaced with a fresh one; an id that already exists is rejected, so a
// suggestion repeated on every cycle is added once.
func (q *Quest) AddDynamicObjective(d ObjectiveDescriptor, reason string) (*Objective, error) {
	if q.Status != StatusActive {
		return nil, fmt.Errorf("%w: quest %s is %s", ErrQuestNotActive, q.ID, q.Status)
	}
	if d.ID == "" {
		d.ID = q.uniqueDynamicID()
	} else if q.Objective(d.ID) != nil {
		return nil, fmt.Errorf("%w: %s in quest %s", ErrDuplicateObjective, d.ID, q.ID)
	}

	known := make([]string, 0, len(d.Prerequisites))
	for _, p := range d.Prerequisites {
		if q.Objective(p) != nil {
			known = append(known, p)
		}
	}
	d.Prerequisites = known

	o := NewObjective(d)
	o.Optional = true
	o.IsDynamic = true
	o.AIGenerated = true
	q.Objectives = append(q.Objectives, o)

	if q.prerequisitesMet(o) {
		o.Activate()
	}

	q.AIContext.DynamicBranches = append(q.AIContext.DynamicBranches, o.ID)
	q.appendWorldEvent(fmt.Sprintf("dynamic objective %s added: %s", o.ID, reason))
	return o, nil
}

func (q *Quest) uniqueDynamicID() string {
	for {
		id := "dyn-" + uuid.New().String()[:8]
		if q.Objective(id) == nil {
			return id
		}
	}
}

// RecordObjectiveProgress applies a world progress event. It returns true when
// the event completed the objective.
func (q *Quest) RecordObjectiveProgress(objectiveID string, count int) (bool, error) {
	if q.Status != StatusActive {
		return false, fmt.Errorf("%w: quest %s is %s", ErrQuestNotActive, q.ID, q.Status)
	}
	o := q.Objective(objectiveID)
	if o == nil {
		return false, fmt.Errorf("%w: %s in quest %s", ErrObjectiveNotFound, objectiveID, q.ID)
	}
	if o.Status == ObjectivePending {
		if !q.prerequisitesMet(o) {
			return false, fmt.Errorf("%w: %s", ErrPrerequisitesUnmet, objectiveID)
		}
		o.Activate()
	}

	completed, err := o.UpdateProgress(count)
	if err != nil {
		return false, err
	}
	if completed {
		q.appendWorldEvent(fmt.Sprintf("objective %s completed", o.ID))
		q.activateReady()
	}
	return completed, nil
}

// RecordAlternativeCompletion appends an entry to the history of a completion method
func (q *Quest) RecordAlternativeCompletion(method string, data map[string]interface{}, now time.Time) error {
	if q.Status != StatusActive {
		return fmt.Errorf("%w: quest %s is %s", ErrQuestNotActive, q.ID, q.Status)
	}
	if method == "" {
		return fmt.Errorf("alternative completion method must be set")
	}
	if q.AlternativeCompletions == nil {
		q.AlternativeCompletions = map[string][]AlternativeCompletion{}
	}
	q.AlternativeCompletions[method] = append(q.AlternativeCompletions[method], AlternativeCompletion{
		Timestamp: now,
		Data:      copyData(data),
	})
	q.appendWorldEvent("alternative completion recorded: " + method)
	return nil
}

// RecordPlayerChoice appends a player decision to the AI context
func (q *Quest) RecordPlayerChoice(choice string) {
	if q.AIContext.Frozen {
		return
	}
	q.AIContext.PlayerChoices = append(q.AIContext.PlayerChoices, choice)
}

// RecordConversation appends a conversation line to the AI context
func (q *Quest) RecordConversation(line string) {
	if q.AIContext.Frozen {
		return
	}
	q.AIContext.ConversationHistory = append(q.AIContext.ConversationHistory, line)
}

func (q *Quest) appendWorldEvent(event string) {
	if q.AIContext.Frozen {
		return
	}
	q.AIContext.WorldEvents = append(q.AIContext.WorldEvents, event)
}

// prerequisitesMet reports whether every prerequisite of o is completed
func (q *Quest) prerequisitesMet(o *Objective) bool {
	for _, id := range o.Prerequisites {
		p := q.Objective(id)
		if p == nil || !p.IsCompleted() {
			return false
		}
	}
	return true
}

// activateReady activates gated objectives whose prerequisites just became
// satisfied. If nothing is left active, the next pending objective in order
// with satisfied prerequisites is activated.
func (q *Quest) activateReady() {
	anyActive := false
	for _, o := range q.Objectives {
		if o.Status == ObjectivePending && len(o.Prerequisites) > 0 && q.prerequisitesMet(o) {
			o.Activate()
		}
		if o.Status == ObjectiveActive {
			anyActive = true
		}
	}
	if anyActive {
		return
	}
	for _, o := range q.Objectives {
		if o.Status == ObjectivePending && q.prerequisitesMet(o) {
			o.Activate()
			return
		}
	}
}

// RequiredObjectivesComplete reports whether every non-optional objective is completed
func (q *Quest) RequiredObjectivesComplete() bool {
	for _, o := range q.Objectives {
		if !o.Optional && !o.IsCompleted() {
			return false
		}
	}
	return true
}

// CompletedObjectiveIDs returns completed objective ids in quest order
func (q *Quest) CompletedObjectiveIDs() []string {
	ids := make([]string, 0, len(q.Objectives))
	for _, o := range q.Objectives {
		if o.IsCompleted() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// OpenObjectiveIDs returns the ids of objectives not yet completed, in quest order
func (q *Quest) OpenObjectiveIDs() []string {
	ids := make([]string, 0, len(q.Objectives))
	for _, o := range q.Objectives {
		if !o.IsCompleted() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Progress summarizes objective completion
func (q *Quest) Progress() QuestProgress {
	p := QuestProgress{QuestID: q.ID, Status: q.Status}
	for _, o := range q.Objectives {
		if o.Optional {
			p.TotalOptional++
			if o.IsCompleted() {
				p.CompletedOptional++
			}
			continue
		}
		p.TotalRequired++
		if o.IsCompleted() {
			p.CompletedRequired++
		}
	}
	if p.TotalRequired > 0 {
		p.ProgressPercentage = float64(p.CompletedRequired) / float64(p.TotalRequired) * 100.0
	} else if q.Status == StatusCompleted {
		p.ProgressPercentage = 100.0
	}
	return p
}
