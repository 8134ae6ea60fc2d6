package repair

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"qmd_datagen/expansion"
	"qmd_datagen/llm"
	"qmd_datagen/utils/jsonx"
	"qmd_datagen/utils/slicesx"
)

// BadHydePattern marks the boilerplate hydes an earlier generation pass
// produced instead of query-specific document snippets.
const BadHydePattern = "comprehensive guide covers everything"

const DefaultBatchSize = 25

// Fixer regenerates boilerplate hydes with a chat model, batching queries to
// keep the call count down.
type Fixer struct {
	Model     llm.ChatModel
	BatchSize int
}

func NewFixer(model llm.ChatModel) *Fixer {
	return &Fixer{Model: model, BatchSize: DefaultBatchSize}
}

// FindBadHydes returns the indices of records carrying the boilerplate hyde.
func FindBadHydes(records []expansion.Record) []int {
	var indices []int
	for i, record := range records {
		if strings.Contains(record.Hyde, BadHydePattern) {
			indices = append(indices, i)
		}
	}
	return indices
}

// Run regenerates hydes for every bad record not already covered by the
// checkpoint, saving the checkpoint after each batch. A batch that fails is
// checkpointed before the error is returned so completed work survives.
func (f *Fixer) Run(ctx context.Context, records []expansion.Record, checkpoint *Checkpoint, store *CheckpointStore) error {
	badIndices := FindBadHydes(records)
	completed := checkpoint.Completed()
	toProcess := slicesx.Filter(badIndices, func(idx int) bool {
		_, done := completed[idx]
		return !done
	})
	fmt.Printf("Found %d bad hydes, %d already processed, %d remaining\n",
		len(badIndices), len(badIndices)-len(toProcess), len(toProcess))

	batches := slicesx.Chunk(toProcess, f.BatchSize)
	for b, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		queries := slicesx.Map(batch, func(idx int, _ int) string {
			return records[idx].Query
		})
		fmt.Printf("Processing batch %d/%d (%d queries)\n", b+1, len(batches), len(queries))

		hydes, err := f.generateBatch(ctx, queries)
		if err != nil {
			if saveErr := store.Save(checkpoint); saveErr != nil {
				return fmt.Errorf("batch failed (%v), and saving checkpoint also failed: %w", err, saveErr)
			}
			return err
		}
		for j, idx := range batch {
			newHyde, ok := hydes[j+1]
			if !ok {
				fmt.Printf("  [%d] missing hyde for: %s\n", idx, records[idx].Query)
				continue
			}
			checkpoint.MarkDone(idx, newHyde)
		}
		if err := store.Save(checkpoint); err != nil {
			return err
		}
		fmt.Printf("  checkpoint saved: %d/%d complete\n", len(checkpoint.CompletedIndices), len(badIndices))
	}
	return nil
}

// generateBatch asks the model for one hyde per query, keyed by the query's
// 1-based position in the batch.
func (f *Fixer) generateBatch(ctx context.Context, queries []string) (map[int]string, error) {
	prompt, err := buildBatchPrompt(queries)
	if err != nil {
		return nil, err
	}
	messages := []*llm.Message{
		{Role: llm.MessageRoleUser, Content: prompt},
	}
	if tokens := llm.ApproxNumTokensInMessages(messages); tokens > f.Model.ContextLength() {
		return nil, fmt.Errorf("batch prompt is ~%d tokens, over the model's %d token context; lower the batch size", tokens, f.Model.ContextLength())
	}
	response, err := f.Model.Message(ctx, messages, &llm.MessageOptions{
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, err
	}
	return parseBatchReply(response.Content)
}

func buildBatchPrompt(queries []string) (string, error) {
	schemaStr, err := jsonx.ValueToJsonSchemaStr(map[string]string{})
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON schema: %w", err)
	}
	numbered := slicesx.Map(queries, func(q string, i int) string {
		return fmt.Sprintf("%d. %s", i+1, q)
	})
	return fmt.Sprintf(`Generate hypothetical document snippets (hyde) for each query below.

Requirements:
- 100-180 characters each
- Query-specific factual information
- Written as if from an actual document that would answer the query
- NO generic phrases like "comprehensive guide" or "everything you need to know"
- Include actual facts, numbers, names, or specifics

Example:
Query: "kubernetes pod networking"
Hyde: "Pods communicate via cluster IP. Use CNI plugins like Calico or Flannel. Service discovery through DNS. NetworkPolicy controls traffic between namespaces."

Queries to process:
%s

Output ONLY valid JSON - a single object mapping query numbers to hyde texts, matching this JSON Schema:
%s

For example: {"1": "hyde text for query 1", "2": "hyde text for query 2"}`,
		strings.Join(numbered, "\n"), schemaStr), nil
}

// parseBatchReply decodes the model's number-to-hyde object, tolerating a
// markdown code fence around the JSON.
func parseBatchReply(content string) (map[int]string, error) {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		if len(parts) > 1 {
			text = parts[1]
		}
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSpace(text)
	}
	raw := map[string]string{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("model reply is not a number-to-hyde JSON object: %w", err)
	}
	hydes := make(map[int]string, len(raw))
	for key, value := range raw {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("model reply key %q is not a number", key)
		}
		hydes[n] = value
	}
	return hydes, nil
}

// ApplyFixes writes the checkpoint's regenerated hydes back into the records.
// Keys are applied in sorted order so a bad key always surfaces at the same
// point.
func ApplyFixes(records []expansion.Record, checkpoint *Checkpoint) (int, error) {
	keys := maps.Keys(checkpoint.ProcessedQueries)
	slices.Sort(keys)
	applied := 0
	for _, key := range keys {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return applied, fmt.Errorf("checkpoint key %q is not a record index", key)
		}
		if idx < 0 || idx >= len(records) {
			return applied, fmt.Errorf("checkpoint index %d out of range (%d records)", idx, len(records))
		}
		records[idx].Hyde = checkpoint.ProcessedQueries[key]
		applied++
	}
	return applied, nil
}

// CountBadHydes re-counts the boilerplate pattern, used to verify a rewrite.
func CountBadHydes(records []expansion.Record) int {
	return len(FindBadHydes(records))
}
