package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"qmd_datagen/expansion"
	"qmd_datagen/llm"
	"qmd_datagen/repair"
)

func main() {
	ctx := context.Background()
	input := flag.String("input", "qmd_expansion_v2.jsonl", "Path to the dataset with boilerplate hydes")
	output := flag.String("output", "qmd_expansion_v3.jsonl", "Path for the repaired dataset")
	checkpointPath := flag.String("checkpoint", "fix_hyde_checkpoint.json", "Path to the progress checkpoint")
	model := flag.String("model", string(llm.ChatModelGPT4oMini), "Chat model used to regenerate hydes")
	batchSize := flag.Int("batch-size", repair.DefaultBatchSize, "Queries per model call")
	flag.Parse()

	// .env is optional; the key can come straight from the environment.
	_ = godotenv.Load()

	// The rewrite must carry every record through, bad hydes included, so
	// the filtering reader is not used here.
	records, err := expansion.ReadAllFile(*input)
	if err != nil {
		log.Fatalf("Error reading %s: %v", *input, err)
	}
	fmt.Printf("Loaded %d records from %s\n", len(records), *input)

	store := repair.NewCheckpointStore(*checkpointPath)
	checkpoint, err := store.Load()
	if err != nil {
		log.Fatalf("Error loading checkpoint: %v", err)
	}

	chatModel, err := llm.NewOpenAIChatModelFromEnv(llm.ChatModelID(*model))
	if err != nil {
		log.Fatal(err)
	}
	fixer := repair.NewFixer(chatModel)
	if *batchSize > 0 {
		fixer.BatchSize = *batchSize
	}
	if err := fixer.Run(ctx, records, checkpoint, store); err != nil {
		log.Fatalf("Error regenerating hydes: %v", err)
	}

	applied, err := repair.ApplyFixes(records, checkpoint)
	if err != nil {
		log.Fatalf("Error applying fixes: %v", err)
	}
	fmt.Printf("Applied %d fixes\n", applied)

	if err := expansion.WriteFile(*output, records); err != nil {
		log.Fatalf("Error writing %s: %v", *output, err)
	}
	remaining := repair.CountBadHydes(records)
	fmt.Printf("Done! Bad hydes remaining: %d\n", remaining)
	fmt.Printf("Output written to: %s\n", *output)
}
