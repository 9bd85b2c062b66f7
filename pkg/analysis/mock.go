package analysis

import "context"

// Mock is a scriptable analysis client for tests. It can replay a fixed
// result, a fixed error, or a custom function, and records how often it
// was called.
type Mock struct {
	AnalyzeFunc func(ctx context.Context, req Request) (*Result, error)
	Result      *Result
	Err         error
	Calls       int
}

func (m *Mock) Analyze(ctx context.Context, req Request) (*Result, error) {
	m.Calls++
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &Result{Value: 1, Confidence: 0.9, Reasoning: "mock"}, nil
}

func (m *Mock) Health(ctx context.Context) error {
	return nil
}

// NewMock creates a mock client with default behavior
func NewMock() *Mock {
	return &Mock{}
}
