package repair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"qmd_datagen/expansion"
	"qmd_datagen/llm"
)

// chatModelFunc adapts a prompt-to-reply function into a ChatModel.
type chatModelFunc func(prompt string) (string, error)

func (f chatModelFunc) Message(ctx context.Context, messages []*llm.Message, options *llm.MessageOptions) (*llm.Message, error) {
	reply, err := f(messages[len(messages)-1].Content)
	if err != nil {
		return nil, err
	}
	return &llm.Message{Role: llm.MessageRoleAssistant, Content: reply}, nil
}

func (f chatModelFunc) ContextLength() int {
	return 128000
}

// batchReply builds the number-to-hyde reply the prompt asks for, deriving
// each hyde from the numbered query lines so tests can trace fixes back.
func batchReply(prompt string) string {
	hydes := map[string]string{}
	for _, line := range strings.Split(prompt, "\n") {
		num, query, found := strings.Cut(line, ". ")
		if !found {
			continue
		}
		if _, err := strconv.Atoi(num); err != nil {
			continue
		}
		hydes[num] = "fixed: " + query
	}
	data, _ := json.Marshal(hydes)
	return string(data)
}

func badRecord(i int) expansion.Record {
	return expansion.Record{
		Query: fmt.Sprintf("query %d", i),
		Lex:   []string{"l"},
		Vec:   []string{"v"},
		Hyde:  "This comprehensive guide covers everything you need.",
	}
}

func goodRecord(i int) expansion.Record {
	return expansion.Record{
		Query: fmt.Sprintf("query %d", i),
		Lex:   []string{"l"},
		Vec:   []string{"v"},
		Hyde:  fmt.Sprintf("Specific fact about query %d.", i),
	}
}

func TestFindBadHydes(t *testing.T) {
	records := []expansion.Record{goodRecord(0), badRecord(1), goodRecord(2), badRecord(3)}
	assert.Equal(t, []int{1, 3}, FindBadHydes(records))
}

func TestParseBatchReply(t *testing.T) {
	hydes, err := parseBatchReply(`{"1": "first", "2": "second"}`)
	assert.NoError(t, err)
	assert.Equal(t, map[int]string{1: "first", 2: "second"}, hydes)
}

func TestParseBatchReplyStripsCodeFence(t *testing.T) {
	reply := "```json\n{\"1\": \"first\"}\n```"
	hydes, err := parseBatchReply(reply)
	assert.NoError(t, err)
	assert.Equal(t, map[int]string{1: "first"}, hydes)

	reply = "```\n{\"2\": \"second\"}\n```"
	hydes, err = parseBatchReply(reply)
	assert.NoError(t, err)
	assert.Equal(t, map[int]string{2: "second"}, hydes)
}

func TestParseBatchReplyRejectsGarbage(t *testing.T) {
	_, err := parseBatchReply("not json at all")
	assert.Error(t, err)

	_, err = parseBatchReply(`{"not-a-number": "hyde"}`)
	assert.Error(t, err)
}

func TestFixerRunRepairsAndCheckpoints(t *testing.T) {
	records := []expansion.Record{badRecord(0), goodRecord(1), badRecord(2)}

	// Answer whatever batch the fixer sends.
	fixer := NewFixer(chatModelFunc(func(prompt string) (string, error) {
		return batchReply(prompt), nil
	}))
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	checkpoint, err := store.Load()
	assert.NoError(t, err)

	assert.NoError(t, fixer.Run(context.Background(), records, checkpoint, store))
	assert.ElementsMatch(t, []int{0, 2}, checkpoint.CompletedIndices)

	applied, err := ApplyFixes(records, checkpoint)
	assert.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, "fixed: query 0", records[0].Hyde)
	assert.Equal(t, "fixed: query 2", records[2].Hyde)
	assert.Equal(t, 0, CountBadHydes(records))

	// The run persisted its progress.
	reloaded, err := store.Load()
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 2}, reloaded.CompletedIndices)
}

func TestFixerRunSkipsCompletedIndices(t *testing.T) {
	records := []expansion.Record{badRecord(0), badRecord(1)}
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	checkpoint := NewCheckpoint()
	checkpoint.MarkDone(0, "already fixed")

	var prompts []string
	fixer := NewFixer(chatModelFunc(func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return batchReply(prompt), nil
	}))

	assert.NoError(t, fixer.Run(context.Background(), records, checkpoint, store))
	assert.Len(t, prompts, 1)
	assert.NotContains(t, prompts[0], "query 0")
	assert.Contains(t, prompts[0], "query 1")
}

func TestFixerRunBatches(t *testing.T) {
	var records []expansion.Record
	for i := 0; i < 7; i++ {
		records = append(records, badRecord(i))
	}
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	checkpoint := NewCheckpoint()

	calls := 0
	fixer := NewFixer(chatModelFunc(func(prompt string) (string, error) {
		calls++
		return batchReply(prompt), nil
	}))
	fixer.BatchSize = 3

	assert.NoError(t, fixer.Run(context.Background(), records, checkpoint, store))
	assert.Equal(t, 3, calls)
	assert.Len(t, checkpoint.CompletedIndices, 7)
}

func TestFixerRunSavesCheckpointOnFailure(t *testing.T) {
	records := []expansion.Record{badRecord(0), badRecord(1)}
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	checkpoint := NewCheckpoint()
	checkpoint.MarkDone(1, "kept")

	fixer := NewFixer(chatModelFunc(func(prompt string) (string, error) {
		return "", errors.New("model unavailable")
	}))
	err := fixer.Run(context.Background(), records, checkpoint, store)
	assert.Error(t, err)

	reloaded, err := store.Load()
	assert.NoError(t, err)
	assert.Equal(t, "kept", reloaded.ProcessedQueries["1"])
}

func TestFixerRunToleratesMissingHydes(t *testing.T) {
	records := []expansion.Record{badRecord(0), badRecord(1)}
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	checkpoint := NewCheckpoint()

	// Model only answers the first query of the batch.
	fixer := NewFixer(chatModelFunc(func(prompt string) (string, error) {
		return `{"1": "only the first"}`, nil
	}))

	assert.NoError(t, fixer.Run(context.Background(), records, checkpoint, store))
	assert.Equal(t, []int{0}, checkpoint.CompletedIndices)
}

// tinyContextModel fails the token guard before any call goes out.
type tinyContextModel struct {
	called bool
}

func (m *tinyContextModel) Message(ctx context.Context, messages []*llm.Message, options *llm.MessageOptions) (*llm.Message, error) {
	m.called = true
	return &llm.Message{Role: llm.MessageRoleAssistant, Content: "{}"}, nil
}

func (m *tinyContextModel) ContextLength() int {
	return 10
}

func TestFixerRunRejectsOversizedBatchPrompt(t *testing.T) {
	records := []expansion.Record{badRecord(0)}
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	checkpoint := NewCheckpoint()

	model := &tinyContextModel{}
	fixer := NewFixer(model)
	err := fixer.Run(context.Background(), records, checkpoint, store)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "token context")
	assert.False(t, model.called)
}

func TestApplyFixesRejectsBadIndices(t *testing.T) {
	records := []expansion.Record{goodRecord(0)}
	checkpoint := NewCheckpoint()
	checkpoint.MarkDone(5, "out of range")

	_, err := ApplyFixes(records, checkpoint)
	assert.Error(t, err)
}

func TestCheckpointStoreMissingFile(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "nope.json"))
	checkpoint, err := store.Load()
	assert.NoError(t, err)
	assert.Empty(t, checkpoint.CompletedIndices)
	assert.NotNil(t, checkpoint.ProcessedQueries)
}

func TestBuildBatchPromptNumbersQueries(t *testing.T) {
	prompt, err := buildBatchPrompt([]string{"first query", "second query"})
	assert.NoError(t, err)
	assert.Contains(t, prompt, "1. first query")
	assert.Contains(t, prompt, "2. second query")
	assert.Contains(t, prompt, "JSON Schema")
}
