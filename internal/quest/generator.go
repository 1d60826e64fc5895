package quest

import (
	"context"
	"fmt"
	"log"
	"time"
)

var knownObjectiveTypes = map[ObjectiveType]bool{
	ObjectiveTalk:        true,
	ObjectiveCollect:     true,
	ObjectiveDeliver:     true,
	ObjectiveExplore:     true,
	ObjectiveAssist:      true,
	ObjectiveInvestigate: true,
	ObjectiveCustom:      true,
}

// Generator builds pending quests from templates or objective graphs
type Generator struct {
	logger *QuestSystemLogger
	now    func() time.Time
}

// NewGenerator creates a new quest generator
func NewGenerator(logger *QuestSystemLogger) *Generator {
	return &Generator{logger: logger, now: time.Now}
}

// GenerateFromTemplate instantiates every template step as a static objective, in order.
func (g *Generator) GenerateFromTemplate(t Template) *Quest {
	q := g.fromTemplate(t)
	for _, step := range t.Steps {
		q.addStaticObjective(step)
	}
	log.Printf("[Generator] Created quest %s from template %s with %d objectives", q.ID, t.ID, len(q.Objectives))
	return q
}

// GenerateFromAIGraph instantiates graph nodes in dependency order. Any
// malformed graph falls back to the template; this never fails.
func (g *Generator) GenerateFromAIGraph(graph *MissionGraph, t Template) *Quest {
	order, err := ValidateGraph(graph)
	if err != nil {
		g.logger.LogError("generate_from_graph", err, map[string]interface{}{"template_id": t.ID})
		log.Printf("[Generator] Falling back to template %s", t.ID)
		return g.GenerateFromTemplate(t)
	}

	byID := make(map[string]GraphNode, len(graph.Nodes))
	for _, n := range graph.Nodes {
		byID[n.ID] = n
	}

	q := g.fromTemplate(t)
	for _, id := range order {
		n := byID[id]
		objType := n.Type
		if !knownObjectiveTypes[objType] {
			objType = ObjectiveCustom
		}
		o, _ := q.addStaticObjective(ObjectiveDescriptor{
			ID:            n.ID,
			Type:          objType,
			Title:         n.Title,
			Description:   n.Description,
			RequiredCount: n.RequiredCount,
			Optional:      n.Optional,
			Alternatives:  n.Alternatives,
			Prerequisites: n.Prerequisites,
			Hint:          n.Hint,
		})
		if o != nil {
			o.AIGenerated = true
		}
	}
	log.Printf("[Generator] Created quest %s from objective graph with %d objectives", q.ID, len(q.Objectives))
	return q
}

// GenerateFromSource requests a graph from the source and falls back to the
// template when the request fails.
func (g *Generator) GenerateFromSource(ctx context.Context, source GraphSource, t Template) *Quest {
	if source == nil {
		return g.GenerateFromTemplate(t)
	}
	graph, err := source.FetchGraph(ctx, t)
	if err != nil {
		g.logger.LogError("fetch_graph", err, map[string]interface{}{"template_id": t.ID})
		return g.GenerateFromTemplate(t)
	}
	return g.GenerateFromAIGraph(graph, t)
}

func (g *Generator) fromTemplate(t Template) *Quest {
	q := newQuest(t.Type, t.Title, t.Description, g.now())
	q.TemplateID = t.ID
	q.BaseReward = t.BaseReward
	q.TimeLimit = t.TimeLimit
	q.Requirements = t.Requirements
	return q
}

// ValidateGraph checks an objective graph and returns its node ids in
// topological order. Entry points are seeded first, remaining roots follow
// in input order, and dependents are released in input order.
func ValidateGraph(graph *MissionGraph) ([]string, error) {
	if graph == nil || len(graph.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrMalformedGraph)
	}

	index := make(map[string]int, len(graph.Nodes))
	for i, n := range graph.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node %d has no id", ErrMalformedGraph, i)
		}
		if n.Type == "" {
			return nil, fmt.Errorf("%w: node %s has no type", ErrMalformedGraph, n.ID)
		}
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %s", ErrMalformedGraph, n.ID)
		}
		index[n.ID] = i
	}

	// Reverse index and in-degrees
	inDegree := make(map[string]int, len(graph.Nodes))
	requiredBy := make(map[string][]string, len(graph.Nodes))
	for _, n := range graph.Nodes {
		for _, req := range n.Prerequisites {
			if _, ok := index[req]; !ok {
				return nil, fmt.Errorf("%w: node %s requires missing node %s", ErrMalformedGraph, n.ID, req)
			}
			requiredBy[req] = append(requiredBy[req], n.ID)
			inDegree[n.ID]++
		}
	}
	for _, ep := range graph.EntryPoints {
		if _, ok := index[ep]; !ok {
			return nil, fmt.Errorf("%w: missing entry point %s", ErrMalformedGraph, ep)
		}
	}

	queued := make(map[string]bool, len(graph.Nodes))
	var queue []string
	for _, ep := range graph.EntryPoints {
		if inDegree[ep] == 0 && !queued[ep] {
			queue = append(queue, ep)
			queued[ep] = true
		}
	}
	for _, n := range graph.Nodes {
		if inDegree[n.ID] == 0 && !queued[n.ID] {
			queue = append(queue, n.ID)
			queued[n.ID] = true
		}
	}

	order := make([]string, 0, len(graph.Nodes))
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		order = append(order, curr)

		for _, dep := range requiredBy[curr] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(graph.Nodes) {
		return nil, fmt.Errorf("%w: cycle detected", ErrMalformedGraph)
	}
	return order, nil
}
