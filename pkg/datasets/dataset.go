// Package datasets provides dataset loaders and an in-memory core.Dataset
// implementation for optimization runs.
package datasets

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/errors"
)

// InMemoryDataset is a thread-safe core.Dataset backed by a slice.
type InMemoryDataset struct {
	mu       sync.Mutex
	examples []core.Example
	index    int
}

// NewInMemoryDataset wraps examples in a dataset iterator.
func NewInMemoryDataset(examples []core.Example) *InMemoryDataset {
	return &InMemoryDataset{examples: examples}
}

func (d *InMemoryDataset) Next() (core.Example, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.index >= len(d.examples) {
		return core.Example{}, false
	}
	example := d.examples[d.index]
	d.index++
	return example, true
}

func (d *InMemoryDataset) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index = 0
}

// Len returns the number of examples.
func (d *InMemoryDataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.examples)
}

// Split cuts the dataset into train and validation parts at the given
// fraction of examples, in order.
func (d *InMemoryDataset) Split(trainFraction float64) (*InMemoryDataset, *InMemoryDataset) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cut := int(float64(len(d.examples)) * trainFraction)
	if cut < 0 {
		cut = 0
	}
	if cut > len(d.examples) {
		cut = len(d.examples)
	}
	return NewInMemoryDataset(d.examples[:cut]), NewInMemoryDataset(d.examples[cut:])
}

// QAPair is a question/answer record as found in serialized QA datasets.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Example converts the pair to a core.Example with "question"/"answer" fields.
func (p QAPair) Example() core.Example {
	return core.Example{
		Inputs:  map[string]interface{}{"question": p.Question},
		Outputs: map[string]interface{}{"answer": p.Answer},
	}
}

// FromQAPairs builds a dataset from question/answer records.
func FromQAPairs(pairs []QAPair) *InMemoryDataset {
	examples := make([]core.Example, len(pairs))
	for i, pair := range pairs {
		examples[i] = pair.Example()
	}
	return NewInMemoryDataset(examples)
}

// LoadJSON reads a dataset from a JSON file holding an array of
// question/answer objects.
func LoadJSON(path string) (*InMemoryDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read dataset file")
	}

	var pairs []QAPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to parse dataset JSON")
	}
	return FromQAPairs(pairs), nil
}
