package quest

import (
	"log"
	"time"
)

// QuestSystemLogger provides leveled logging for the quest system.
// It wraps the standard log package to keep output consistent and parseable.
type QuestSystemLogger struct {
	debug bool
}

// NewQuestSystemLogger creates a new logger. Debug lines are dropped unless debug is set.
func NewQuestSystemLogger(debug bool) *QuestSystemLogger {
	return &QuestSystemLogger{debug: debug}
}

func (l *QuestSystemLogger) log(level, category, format string, args ...interface{}) {
	if l == nil {
		return
	}
	if level == "DEBUG" && !l.debug {
		return
	}
	prefix := "[QuestSystem][" + level + "][" + category + "] "
	log.Printf(prefix+format, args...)
}

// LogStateTransition logs an accepted transition
func (l *QuestSystemLogger) LogStateTransition(questID string, from, to Status, reason string) {
	l.log("INFO", "STATE", "Quest %s transitioned: %s -> %s | Reason: %s", questID, from, to, reason)
}

// LogRejectedTransition logs an illegal transition request
func (l *QuestSystemLogger) LogRejectedTransition(questID string, from, to Status, reason string) {
	l.log("WARN", "STATE", "Quest %s rejected transition: %s -> %s | Reason: %s", questID, from, to, reason)
}

// LogDynamicObjective logs an appended evaluator objective
func (l *QuestSystemLogger) LogDynamicObjective(questID, objectiveID, reason string) {
	l.log("INFO", "DYNAMIC", "Quest %s gained objective %s | Reason: %s", questID, objectiveID, reason)
}

// LogEvaluation logs the outcome of an evaluation cycle
func (l *QuestSystemLogger) LogEvaluation(questID, outcome string, duration time.Duration) {
	l.log("INFO", "EVALUATION", "Quest %s evaluated in %s | Outcome: %s", questID, duration, outcome)
}

// LogDegraded logs that the external evaluator was unavailable and the fallback ran
func (l *QuestSystemLogger) LogDegraded(questID string, cause error) {
	l.log("INFO", "EVALUATION", "Quest %s running in degraded mode | Cause: %v", questID, cause)
}

// LogStaleVerdict logs a verdict discarded because the quest left ACTIVE
func (l *QuestSystemLogger) LogStaleVerdict(questID string, status Status) {
	l.log("DEBUG", "EVALUATION", "Quest %s discarded stale verdict (status %s)", questID, status)
}

// LogSkippedTick logs an evaluation tick skipped because one is already in flight
func (l *QuestSystemLogger) LogSkippedTick(questID string) {
	l.log("DEBUG", "EVALUATION", "Quest %s tick skipped, evaluation in flight", questID)
}

// LogError logs errors with operational context
func (l *QuestSystemLogger) LogError(operation string, err error, context map[string]interface{}) {
	l.log("ERROR", "SYSTEM", "Operation '%s' failed | Error: %v | Context: %v", operation, err, context)
}
