package session

import "encoding/json"

// PlanVersion is the plan schema version this engine understands.
const PlanVersion = "1.0"

// Plan is the opaque command plan produced by an external translation
// collaborator. The engine validates only Command non-emptiness and
// working-directory containment; every other field passes through
// unmodified to the audit sink.
type Plan struct {
	Version            string   `json:"version"`
	Intent             string   `json:"intent,omitempty"`
	Command            []string `json:"command"`
	Cwd                string   `json:"cwd,omitempty"`
	Inputs             []string `json:"inputs,omitempty"`
	Outputs            []string `json:"outputs,omitempty"`
	Explain            string   `json:"explain,omitempty"`
	NeedsClarification bool     `json:"needs_clarification,omitempty"`
	Question           string   `json:"question,omitempty"`
}

// ParsePlan decodes and validates a JSON plan.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &PlanError{Reason: err.Error()}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the only field the engine enforces: a non-empty
// command vector with a non-empty program.
func (p *Plan) Validate() error {
	if len(p.Command) == 0 {
		return &PlanError{Reason: "command must not be empty"}
	}
	if p.Command[0] == "" {
		return &PlanError{Reason: "command program must not be empty"}
	}
	return nil
}
