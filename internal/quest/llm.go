package quest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Completer posts a chat payload to the generative service and returns the raw
// response body. llm.Client satisfies it.
type Completer interface {
	Call(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error)
}

// GameMaster is the generative service acting as game master. It judges
// running quests and designs objective graphs for new ones.
type GameMaster struct {
	client Completer
	url    string
	model  string
}

// NewGameMaster creates a game master talking to an OpenAI-style chat endpoint
func NewGameMaster(client Completer, url, model string) *GameMaster {
	return &GameMaster{client: client, url: url, model: model}
}

const gameMasterSystemPrompt = "You are the game master of a role-playing game. Output only valid JSON."

// Evaluate implements Evaluator
func (g *GameMaster) Evaluate(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evaluation request: %w", err)
	}

	prompt := fmt.Sprintf(`Review the quest state below and decide what happens next.
Only suggest objectives with ids that are not already listed in completed_objectives or open_objectives.

QUEST STATE:
%s

Respond with JSON only:
{
  "is_complete": true|false,
  "type": "standard|alternative|partial",
  "reward_modifier": 1.0,
  "summary": "one sentence",
  "can_continue": true|false,
  "suggested_objectives": [
    {"id": "short_id", "type": "talk|collect|deliver|explore|assist|investigate|custom", "title": "...", "description": "...", "required_count": 1, "hint": "..."}
  ]
}`, string(body))

	var verdict Verdict
	if err := g.ask(ctx, prompt, 0.3, &verdict); err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return &verdict, nil
}

// FetchGraph implements GraphSource
func (g *GameMaster) FetchGraph(ctx context.Context, template Template) (*MissionGraph, error) {
	steps := make([]string, 0, len(template.Steps))
	for _, step := range template.Steps {
		steps = append(steps, fmt.Sprintf("- %s (%s): %s", step.ID, step.Type, step.Title))
	}

	prompt := fmt.Sprintf(`Design the objectives of a quest as a dependency graph.

QUEST: %s
DESCRIPTION: %s
SUGGESTED STEPS:
%s

Respond with JSON only:
{
  "nodes": [
    {"id": "unique_id", "type": "talk|collect|deliver|explore|assist|investigate|custom", "title": "...", "description": "...", "required_count": 1, "optional": false, "alternatives": [], "prerequisites": ["other_id"]}
  ],
  "entry_points": ["unique_id"]
}`, template.Title, template.Description, strings.Join(steps, "\n"))

	var graph MissionGraph
	if err := g.ask(ctx, prompt, 0.7, &graph); err != nil {
		return nil, fmt.Errorf("graph generation failed: %w", err)
	}
	return &graph, nil
}

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GameMaster) ask(ctx context.Context, prompt string, temperature float64, target interface{}) error {
	payload := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": gameMasterSystemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": temperature,
	}

	respBody, err := g.client.Call(ctx, g.url, payload)
	if err != nil {
		return fmt.Errorf("llm call failed: %w", err)
	}
	var resp chatCompletion
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal llm response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("no choices returned from llm")
	}
	return parseStructuredResponse(resp.Choices[0].Message.Content, target)
}

// parseStructuredResponse extracts JSON from potentially messy LLM output.
func parseStructuredResponse(response string, target interface{}) error {
	start := 0
	if idx := strings.Index(response, "```json"); idx != -1 {
		start = idx + 7
	} else if idx := strings.Index(response, "```"); idx != -1 {
		start = idx + 3
	}

	end := len(response)
	if idx := strings.Index(response[start:], "```"); idx != -1 {
		end = start + idx
	}

	return json.Unmarshal([]byte(strings.TrimSpace(response[start:end])), target)
}
