package quest

import (
	"fmt"
	"math"
)

// NewObjective builds an objective from a descriptor. RequiredCount below 1 is clamped to 1.
func NewObjective(d ObjectiveDescriptor) *Objective {
	required := d.RequiredCount
	if required < 1 {
		required = 1
	}
	objType := d.Type
	if objType == "" {
		objType = ObjectiveCustom
	}
	return &Objective{
		ID:                  d.ID,
		Type:                objType,
		Title:               d.Title,
		Description:         d.Description,
		Status:              ObjectivePending,
		RequiredCount:       required,
		Conditions:          copyData(d.Conditions),
		Optional:            d.Optional,
		Alternatives:        append([]ObjectiveDescriptor(nil), d.Alternatives...),
		Prerequisites:       append([]string(nil), d.Prerequisites...),
		AssignedParticipant: d.AssignedParticipant,
		Hint:                d.Hint,
	}
}

// Activate moves a pending objective to active. Any other state is left alone.
func (o *Objective) Activate() bool {
	if o.Status != ObjectivePending {
		return false
	}
	o.Status = ObjectiveActive
	return true
}

// UpdateProgress sets the current count. Counts only move forward: a lower
// value keeps the previous count and returns ErrProgressRegression.
// Returns true when this call completed the objective.
func (o *Objective) UpdateProgress(count int) (bool, error) {
	if o.Status == ObjectiveCompleted {
		return false, nil
	}
	if count < o.CurrentCount {
		return false, fmt.Errorf("%w: objective %s at %d, got %d", ErrProgressRegression, o.ID, o.CurrentCount, count)
	}
	o.CurrentCount = count
	o.Progress = computeProgress(o.CurrentCount, o.RequiredCount)
	if o.Progress >= 1 {
		return o.Complete(), nil
	}
	return false, nil
}

// Complete finalizes the objective. Returns false if it was already completed.
func (o *Objective) Complete() bool {
	if o.Status == ObjectiveCompleted {
		return false
	}
	o.Status = ObjectiveCompleted
	o.CurrentCount = o.RequiredCount
	o.Progress = 1
	return true
}

// IsCompleted reports whether the objective is done
func (o *Objective) IsCompleted() bool {
	return o.Status == ObjectiveCompleted
}

func computeProgress(current, required int) float64 {
	if required < 1 {
		required = 1
	}
	return math.Min(1, float64(current)/float64(required))
}

func copyData(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
