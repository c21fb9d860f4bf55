package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"taskplane/internal/task/domain"
)

// Default Rego policy: admins may do anything to their org's tasks, members
// may update tasks assigned to them, only admins delete.
const defaultRegoPolicy = `package taskplane.tasks

default allow_update = false
default allow_delete = false

allow_update if {
	input.actor.role == "admin"
}

allow_update if {
	input.actor.user_id == input.task.assignee_id
	input.task.assignee_id != ""
}

allow_delete if {
	input.actor.role == "admin"
}
`

// OPAEvaluator evaluates task mutation policy using OPA Rego.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the task policy and returns an evaluator.
func NewOPAEvaluator(ctx context.Context) (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"tasks.rego": defaultRegoPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile task policy: %w", err)
	}
	query, err := rego.New(
		rego.Query("data.taskplane.tasks"),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare task policy: %w", err)
	}
	return &OPAEvaluator{query: query}, nil
}

// Evaluate runs the policy for the actor against the task. Missing or
// malformed results deny by default.
func (e *OPAEvaluator) Evaluate(ctx context.Context, actor Actor, task *domain.Task) (Decision, error) {
	input := map[string]interface{}{
		"actor": map[string]interface{}{
			"user_id": actor.UserID,
			"role":    actor.Role,
		},
		"task": map[string]interface{}{
			"id":          "",
			"assignee_id": "",
		},
	}
	if task != nil {
		input["task"] = map[string]interface{}{
			"id":          task.ID,
			"assignee_id": task.AssigneeID,
		}
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("eval task policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, nil
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, nil
	}
	var d Decision
	if v, ok := doc["allow_update"].(bool); ok {
		d.AllowUpdate = v
	}
	if v, ok := doc["allow_delete"].(bool); ok {
		d.AllowDelete = v
	}
	return d, nil
}
