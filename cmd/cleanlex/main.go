package main

import (
	"flag"
	"fmt"
	"log"

	"qmd_datagen/expansion"
	"qmd_datagen/lexclean"
)

func main() {
	input := flag.String("input", "qmd_expansion_v2.jsonl", "Path to the dataset to clean")
	output := flag.String("output", "qmd_expansion_v3_lex_fixed.jsonl", "Path for the cleaned dataset")
	flag.Parse()

	// The rewrite must carry every record through, so the filtering reader
	// is not used here.
	records, err := expansion.ReadAllFile(*input)
	if err != nil {
		log.Fatalf("Error reading %s: %v", *input, err)
	}

	result := lexclean.Clean(records)
	fmt.Printf("Total entries: %d\n", len(result.Records))
	fmt.Printf("Entries modified: %d\n", result.RecordsModified)
	fmt.Printf("Total lex entries cleaned: %d\n", result.LexCleaned)

	if err := expansion.WriteFile(*output, result.Records); err != nil {
		log.Fatalf("Error writing %s: %v", *output, err)
	}
	fmt.Printf("Output written to: %s\n", *output)

	if len(result.Samples) > 0 {
		fmt.Println("\n--- Sample modifications ---")
		for _, sample := range result.Samples {
			fmt.Printf("\nQuery: %s\n", sample.Query)
			fmt.Printf("  - %q\n", sample.Before)
			fmt.Printf("  + %q\n", sample.After)
		}
	}
}
