package core

import (
	"context"

	"github.com/evolvekit/revolve/pkg/errors"
)

// Predictor is one mutable instruction slot of a program under optimization.
// The optimizer reads and overwrites Instruction; Name identifies the pipeline
// step for trace attribution.
type Predictor struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
}

// Clone returns a copy of the predictor.
func (p *Predictor) Clone() *Predictor {
	return &Predictor{Name: p.Name, Instruction: p.Instruction}
}

// Program is the contract the optimizer needs from a program: it can be
// executed on inputs and exposes its ordered instruction slots for rewriting.
type Program interface {
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
	Predictors() []*Predictor
	Clone() Program
}

// ForwardFunc runs a pipeline against inputs using the current predictor
// instructions. The slice is the same ordered set returned by Predictors, so
// instruction rewrites made by the optimizer are visible to the forward pass.
type ForwardFunc func(ctx context.Context, inputs map[string]any, predictors []*Predictor) (map[string]any, error)

// Pipeline is the standard Program implementation: an ordered predictor chain
// plus a forward function.
type Pipeline struct {
	predictors []*Predictor
	forward    ForwardFunc
}

// NewPipeline creates a Pipeline from ordered predictors and a forward function.
func NewPipeline(predictors []*Predictor, forward ForwardFunc) *Pipeline {
	return &Pipeline{
		predictors: predictors,
		forward:    forward,
	}
}

// Execute runs the pipeline with the given inputs.
func (p *Pipeline) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if p.forward == nil {
		return nil, errors.New(errors.InvalidInput, "pipeline has no forward function")
	}
	if err := errors.CheckContext(ctx, "pipeline execution"); err != nil {
		return nil, err
	}
	return p.forward(ctx, inputs, p.predictors)
}

// Predictors returns the ordered mutable instruction slots.
func (p *Pipeline) Predictors() []*Predictor {
	return p.predictors
}

// Clone deep-copies the predictor slots. The forward function pointer is
// shared, which is safe because it only reads the predictors it is handed.
func (p *Pipeline) Clone() Program {
	predictors := make([]*Predictor, len(p.predictors))
	for i, pred := range p.predictors {
		predictors[i] = pred.Clone()
	}
	return &Pipeline{
		predictors: predictors,
		forward:    p.forward,
	}
}

// Instructions reads the ordered instruction strings from a program.
func Instructions(p Program) []string {
	predictors := p.Predictors()
	instructions := make([]string, len(predictors))
	for i, pred := range predictors {
		instructions[i] = pred.Instruction
	}
	return instructions
}

// ApplyInstructions clones the program and overwrites its instruction slots.
// Extra instructions are dropped; missing slots keep their current text.
func ApplyInstructions(p Program, instructions []string) Program {
	clone := p.Clone()
	predictors := clone.Predictors()
	for i, pred := range predictors {
		if i < len(instructions) {
			pred.Instruction = instructions[i]
		}
	}
	return clone
}
