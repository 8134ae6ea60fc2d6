package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"qmd_datagen/convert"
	"qmd_datagen/expansion"
)

func main() {
	input := flag.String("input", "qmd_expansion_v3.jsonl", "Path to the expansion dataset (JSONL)")
	trainOutput := flag.String("train-output", "train.jsonl", "Path for the training split")
	valOutput := flag.String("val-output", "val.jsonl", "Path for the validation split")
	seed := flag.Int64("seed", convert.DefaultSeed, "Shuffle seed")
	ratio := flag.Float64("train-ratio", convert.DefaultTrainRatio, "Fraction of examples placed in the training split")
	flag.Parse()

	if *ratio < 0 || *ratio > 1 {
		log.Fatalf("train-ratio must be in [0, 1], got %v", *ratio)
	}

	read, err := expansion.ReadFile(*input)
	if err != nil {
		log.Fatalf("Error reading %s: %v", *input, err)
	}
	for _, parseErr := range read.ParseErrors {
		log.Printf("skipping malformed line: %v", parseErr)
	}
	if read.TotalLines == 0 {
		log.Printf("warning: %s is empty, writing empty splits", *input)
	}

	result := convert.Convert(read, convert.Options{Seed: *seed, TrainRatio: *ratio})
	if err := convert.WriteJSONL(*trainOutput, result.Train); err != nil {
		log.Fatalf("Error writing %s: %v", *trainOutput, err)
	}
	if err := convert.WriteJSONL(*valOutput, result.Val); err != nil {
		log.Fatalf("Error writing %s: %v", *valOutput, err)
	}

	convert.Summarize(result).Report(os.Stdout)
	fmt.Printf("Wrote %s and %s\n", *trainOutput, *valOutput)
}
