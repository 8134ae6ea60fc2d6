package convert

import (
	"bufio"
	"encoding/json"
	"math"
	"math/rand"
	"os"

	"qmd_datagen/chatml"
	"qmd_datagen/expansion"
)

const (
	DefaultSeed       int64   = 42
	DefaultTrainRatio float64 = 0.9
)

type Options struct {
	Seed       int64
	TrainRatio float64
}

func DefaultOptions() Options {
	return Options{Seed: DefaultSeed, TrainRatio: DefaultTrainRatio}
}

// Result is the outcome of one conversion run.
type Result struct {
	Read  *expansion.ReadResult
	Train []chatml.Example
	Val   []chatml.Example
}

// Convert formats valid records into ChatML examples, shuffles them with a
// seeded Fisher-Yates permutation, and splits at round(ratio * N). Same
// records and same seed always produce the same ordering.
func Convert(read *expansion.ReadResult, opts Options) *Result {
	examples := chatml.FormatAll(read.Records)
	shuffled := shuffle(examples, opts.Seed)
	train, val := split(shuffled, opts.TrainRatio)
	return &Result{Read: read, Train: train, Val: val}
}

func shuffle(examples []chatml.Example, seed int64) []chatml.Example {
	out := make([]chatml.Example, len(examples))
	copy(out, examples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func split(examples []chatml.Example, ratio float64) (train, val []chatml.Example) {
	cut := int(math.Round(ratio * float64(len(examples))))
	return examples[:cut], examples[cut:]
}

// trainingLine is the JSONL shape consumed by the fine-tuning framework.
type trainingLine struct {
	Text string `json:"text"`
}

// WriteJSONL writes one {"text": ...} object per example.
func WriteJSONL(path string, examples []chatml.Example) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	encoder := json.NewEncoder(w)
	for _, example := range examples {
		if err := encoder.Encode(trainingLine{Text: example.Text}); err != nil {
			return err
		}
	}
	return w.Flush()
}
