package core

// Example represents a single training/evaluation example.
type Example struct {
	Inputs  map[string]interface{}
	Outputs map[string]interface{}
}

// Dataset represents a collection of examples for training/evaluation.
type Dataset interface {
	// Next returns the next example in the dataset
	Next() (Example, bool)
	// Reset resets the dataset iterator
	Reset()
}

// Metric is a function type that evaluates the performance of a program.
// Implementations return a value in [0, 1]; the metric itself is opaque to
// the optimizer.
type Metric func(expected, actual map[string]interface{}) float64

// BoolMetric adapts a pass/fail judgement into a Metric, coercing true to 1.0.
func BoolMetric(judge func(expected, actual map[string]interface{}) bool) Metric {
	return func(expected, actual map[string]interface{}) float64 {
		if judge(expected, actual) {
			return 1.0
		}
		return 0.0
	}
}

// CollectExamples drains a dataset into a slice, resetting it first and after.
func CollectExamples(d Dataset) []Example {
	d.Reset()
	var examples []Example
	for {
		example, ok := d.Next()
		if !ok {
			break
		}
		examples = append(examples, example)
	}
	d.Reset()
	return examples
}
