package datasets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvekit/revolve/pkg/core"
)

func TestInMemoryDatasetIteration(t *testing.T) {
	dataset := FromQAPairs([]QAPair{
		{Question: "2+2?", Answer: "4"},
		{Question: "3+3?", Answer: "6"},
	})

	first, ok := dataset.Next()
	require.True(t, ok)
	assert.Equal(t, "2+2?", first.Inputs["question"])
	assert.Equal(t, "4", first.Outputs["answer"])

	_, ok = dataset.Next()
	require.True(t, ok)
	_, ok = dataset.Next()
	assert.False(t, ok)

	dataset.Reset()
	again, ok := dataset.Next()
	require.True(t, ok)
	assert.Equal(t, first, again)
}

func TestInMemoryDatasetCollect(t *testing.T) {
	dataset := FromQAPairs([]QAPair{{Question: "q", Answer: "a"}})
	examples := core.CollectExamples(dataset)
	require.Len(t, examples, 1)

	// CollectExamples resets, so a second drain sees everything again
	assert.Len(t, core.CollectExamples(dataset), 1)
}

func TestSplit(t *testing.T) {
	dataset := FromQAPairs([]QAPair{
		{Question: "a"}, {Question: "b"}, {Question: "c"}, {Question: "d"},
	})

	train, val := dataset.Split(0.75)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, 1, val.Len())

	all, none := dataset.Split(1.0)
	assert.Equal(t, 4, all.Len())
	assert.Equal(t, 0, none.Len())
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qa.json")
	payload := `[
		{"question": "2+2?", "answer": "4"},
		{"question": "capital of France?", "answer": "Paris"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	dataset, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 2, dataset.Len())

	example, ok := dataset.Next()
	require.True(t, ok)
	assert.Equal(t, "4", example.Outputs["answer"])
}

func TestLoadJSONErrors(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = LoadJSON(path)
	assert.Error(t, err)
}

func TestLoadParquetQAMissingFile(t *testing.T) {
	_, err := LoadParquetQA(context.Background(), filepath.Join(t.TempDir(), "missing.parquet"), "", "")
	assert.Error(t, err)
}
