package datasets

import (
	"context"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/evolvekit/revolve/pkg/errors"
)

// LoadParquetQA reads a Parquet file with string question/answer columns into
// a dataset. Column names default to "question" and "answer" when empty.
func LoadParquetQA(ctx context.Context, path, questionColumn, answerColumn string) (*InMemoryDataset, error) {
	if questionColumn == "" {
		questionColumn = "question"
	}
	if answerColumn == "" {
		answerColumn = "answer"
	}

	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to open parquet file")
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to create arrow reader")
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read parquet schema")
	}

	questionIndices := schema.FieldIndices(questionColumn)
	answerIndices := schema.FieldIndices(answerColumn)
	if len(questionIndices) == 0 || len(answerIndices) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "required columns not found in parquet schema"),
			errors.Fields{"question_column": questionColumn, "answer_column": answerColumn})
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read parquet table")
	}
	defer table.Release()

	questions, err := stringColumn(table.Column(questionIndices[0]).Data().Chunks())
	if err != nil {
		return nil, errors.WithFields(err, errors.Fields{"column": questionColumn})
	}
	answers, err := stringColumn(table.Column(answerIndices[0]).Data().Chunks())
	if err != nil {
		return nil, errors.WithFields(err, errors.Fields{"column": answerColumn})
	}
	if len(questions) != len(answers) {
		return nil, errors.New(errors.InvalidInput, "question and answer columns differ in length")
	}

	pairs := make([]QAPair, len(questions))
	for i := range questions {
		pairs[i] = QAPair{Question: questions[i], Answer: answers[i]}
	}
	return FromQAPairs(pairs), nil
}

func stringColumn(chunks []arrow.Array) ([]string, error) {
	var values []string
	for _, chunk := range chunks {
		strs, ok := chunk.(*array.String)
		if !ok {
			return nil, errors.New(errors.InvalidInput, "column must be string typed")
		}
		for i := 0; i < strs.Len(); i++ {
			values = append(values, strs.Value(i))
		}
	}
	return values, nil
}
