package quest

import (
	"errors"
	"math"
	"testing"
)

func TestNewObjective_ClampsRequiredCount(t *testing.T) {
	for _, required := range []int{-3, 0} {
		o := NewObjective(ObjectiveDescriptor{ID: "o", RequiredCount: required})
		if o.RequiredCount != 1 {
			t.Errorf("required %d: expected clamp to 1, got %d", required, o.RequiredCount)
		}
		if o.Type != ObjectiveCustom {
			t.Errorf("expected default type custom, got %s", o.Type)
		}
		if o.Status != ObjectivePending {
			t.Errorf("expected pending, got %s", o.Status)
		}
	}
}

func TestObjective_ProgressFormula(t *testing.T) {
	o := NewObjective(ObjectiveDescriptor{ID: "gather", Type: ObjectiveCollect, RequiredCount: 4})
	o.Activate()

	for count := 0; count < 4; count++ {
		completed, err := o.UpdateProgress(count)
		if err != nil {
			t.Fatalf("count %d: unexpected error: %v", count, err)
		}
		if completed {
			t.Fatalf("count %d: objective completed too early", count)
		}
		want := float64(count) / 4
		if math.Abs(o.Progress-want) > 1e-9 {
			t.Errorf("count %d: expected progress %.2f, got %.2f", count, want, o.Progress)
		}
	}

	completed, err := o.UpdateProgress(9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !completed {
		t.Fatalf("expected completion at count >= required")
	}
	if o.Progress != 1 || o.CurrentCount != o.RequiredCount {
		t.Errorf("completed objective should have progress 1 and count %d, got %.2f/%d", o.RequiredCount, o.Progress, o.CurrentCount)
	}
}

func TestObjective_RegressionKeepsMaximum(t *testing.T) {
	o := NewObjective(ObjectiveDescriptor{ID: "gather", RequiredCount: 5})
	o.Activate()
	if _, err := o.UpdateProgress(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := o.UpdateProgress(1)
	if !errors.Is(err, ErrProgressRegression) {
		t.Fatalf("expected ErrProgressRegression, got %v", err)
	}
	if o.CurrentCount != 3 {
		t.Errorf("expected count to stay at 3, got %d", o.CurrentCount)
	}
}

func TestObjective_CompleteIsIdempotent(t *testing.T) {
	o := NewObjective(ObjectiveDescriptor{ID: "talk", Type: ObjectiveTalk, RequiredCount: 2})
	if !o.Complete() {
		t.Fatalf("first Complete should report a change")
	}
	if o.Complete() {
		t.Errorf("second Complete should be a no-op")
	}

	completed, err := o.UpdateProgress(0)
	if err != nil || completed {
		t.Errorf("progress after completion should be a silent no-op, got completed=%v err=%v", completed, err)
	}
	if o.CurrentCount != 2 || o.Progress != 1 {
		t.Errorf("completed objective changed: count=%d progress=%.2f", o.CurrentCount, o.Progress)
	}
}

func TestObjective_ActivateOnlyFromPending(t *testing.T) {
	o := NewObjective(ObjectiveDescriptor{ID: "o"})
	if !o.Activate() {
		t.Fatalf("expected pending -> active")
	}
	if o.Activate() {
		t.Errorf("activating an active objective should be a no-op")
	}
	o.Complete()
	if o.Activate() || o.Status != ObjectiveCompleted {
		t.Errorf("activating a completed objective must not change it, got %s", o.Status)
	}
}
