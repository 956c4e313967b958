package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/evolvekit/revolve/pkg/core"
)

// MockLLM is a testify-mock implementation of core.LLM.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	args := m.Called(ctx, prompt, opts)
	if resp := args.Get(0); resp != nil {
		return resp.(*core.LLMResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLLM) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	args := m.Called(ctx, prompt, opts)
	if resp := args.Get(0); resp != nil {
		return resp.(map[string]interface{}), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLLM) ProviderName() string {
	return "mock"
}

func (m *MockLLM) ModelID() string {
	if len(m.ExpectedCalls) > 0 {
		for _, call := range m.ExpectedCalls {
			if call.Method == "ModelID" {
				args := m.Called()
				return args.String(0)
			}
		}
	}
	return "mock-model"
}

// StubLLM is a deterministic core.LLM returning a fixed response, for tests
// that need reproducible reflection output without mock bookkeeping.
type StubLLM struct {
	Response string
	Err      error
	Model    string

	mu    sync.Mutex
	calls []string
}

func (s *StubLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, prompt)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	return &core.LLMResponse{Content: s.Response, Usage: &core.TokenInfo{TotalTokens: len(s.Response)}}, nil
}

func (s *StubLLM) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	resp, err := s.Generate(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"content": resp.Content}, nil
}

func (s *StubLLM) ProviderName() string { return "stub" }

func (s *StubLLM) ModelID() string {
	if s.Model != "" {
		return s.Model
	}
	return "stub-model"
}

// Calls returns the prompts seen so far.
func (s *StubLLM) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// MockDataset is an in-memory implementation of core.Dataset.
type MockDataset struct {
	Examples []core.Example
	Index    int
	mu       sync.Mutex
}

// NewMockDataset creates a new MockDataset with the given examples.
func NewMockDataset(examples []core.Example) *MockDataset {
	return &MockDataset{Examples: examples}
}

func (m *MockDataset) Next() (core.Example, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Index < len(m.Examples) {
		example := m.Examples[m.Index]
		m.Index++
		return example, true
	}
	return core.Example{}, false
}

func (m *MockDataset) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Index = 0
}

// EchoProgram builds a pipeline whose answer is produced by a caller-supplied
// function of its instructions and inputs. Handy for simulating how candidate
// instructions change program behavior.
func EchoProgram(names []string, respond func(instructions []string, inputs map[string]any) (map[string]any, error)) *core.Pipeline {
	predictors := make([]*core.Predictor, len(names))
	for i, name := range names {
		predictors[i] = &core.Predictor{Name: name, Instruction: "Answer the question."}
	}
	forward := func(ctx context.Context, inputs map[string]any, preds []*core.Predictor) (map[string]any, error) {
		instructions := make([]string, len(preds))
		for i, p := range preds {
			instructions[i] = p.Instruction
		}
		return respond(instructions, inputs)
	}
	return core.NewPipeline(predictors, forward)
}

// ExactAnswerProgram returns a program that always answers with the expected
// output of the QA pair it is shown, i.e. a program that a reasonable metric
// scores as perfect.
func ExactAnswerProgram() *core.Pipeline {
	return EchoProgram([]string{"answer"}, func(_ []string, inputs map[string]any) (map[string]any, error) {
		if q, ok := inputs["question"].(string); ok && q == "2+2?" {
			return map[string]any{"answer": "4"}, nil
		}
		return map[string]any{"answer": ""}, nil
	})
}
