package quest

import "errors"

var (
	ErrQuestNotFound      = errors.New("quest not found")
	ErrObjectiveNotFound  = errors.New("objective not found")
	ErrDuplicateObjective = errors.New("objective id already exists")
	ErrProgressRegression = errors.New("objective progress cannot decrease")
	ErrPrerequisitesUnmet = errors.New("objective prerequisites not completed")
	ErrQuestNotActive     = errors.New("quest is not active")
	ErrInvalidTransition  = errors.New("invalid quest state transition")
	ErrMalformedGraph     = errors.New("malformed mission graph")
	ErrRequirementsUnmet  = errors.New("quest requirements not met")
	ErrTemplateNotFound   = errors.New("quest template not found")

	// ErrEvaluatorUnavailable covers evaluator errors, timeouts and empty verdicts
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
)
