package policy

import (
	"context"
	"testing"

	"taskplane/internal/task/domain"
)

func newTestEvaluator(t *testing.T) *OPAEvaluator {
	t.Helper()
	e, err := NewOPAEvaluator(context.Background())
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	return e
}

func TestEvaluate_AdminAllowsEverything(t *testing.T) {
	e := newTestEvaluator(t)
	d, err := e.Evaluate(context.Background(), Actor{UserID: "u1", Role: "admin"}, &domain.Task{ID: "t1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.AllowUpdate || !d.AllowDelete {
		t.Errorf("decision = %+v, want update and delete allowed", d)
	}
}

func TestEvaluate_AssigneeMayUpdateNotDelete(t *testing.T) {
	e := newTestEvaluator(t)
	d, err := e.Evaluate(context.Background(), Actor{UserID: "u2", Role: "member"}, &domain.Task{ID: "t1", AssigneeID: "u2"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.AllowUpdate {
		t.Error("assignee should be allowed to update")
	}
	if d.AllowDelete {
		t.Error("member should not be allowed to delete")
	}
}

func TestEvaluate_UnrelatedMemberDenied(t *testing.T) {
	e := newTestEvaluator(t)
	d, err := e.Evaluate(context.Background(), Actor{UserID: "u3", Role: "member"}, &domain.Task{ID: "t1", AssigneeID: "u2"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.AllowUpdate || d.AllowDelete {
		t.Errorf("decision = %+v, want all denied", d)
	}
}

func TestEvaluate_UnassignedTask(t *testing.T) {
	e := newTestEvaluator(t)
	// An empty assignee must not match an empty user id.
	d, err := e.Evaluate(context.Background(), Actor{UserID: "", Role: "member"}, &domain.Task{ID: "t1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.AllowUpdate {
		t.Error("empty assignee matched empty user id")
	}
}
