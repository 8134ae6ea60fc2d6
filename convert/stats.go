package convert

import (
	"fmt"
	"io"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"qmd_datagen/chatml"
	"qmd_datagen/llm"
)

// LengthStats summarizes character lengths over one text field of a split.
type LengthStats struct {
	Min  int
	Max  int
	Mean float64
}

func lengthStats(lengths []float64) LengthStats {
	if len(lengths) == 0 {
		return LengthStats{}
	}
	return LengthStats{
		Min:  int(floats.Min(lengths)),
		Max:  int(floats.Max(lengths)),
		Mean: stat.Mean(lengths, nil),
	}
}

// SplitStats summarizes one output split.
type SplitStats struct {
	Count       int
	Prompt      LengthStats
	Response    LengthStats
	TotalTokens int
}

func ComputeSplitStats(examples []chatml.Example) SplitStats {
	prompts := make([]float64, len(examples))
	responses := make([]float64, len(examples))
	tokens := 0
	for i, example := range examples {
		prompts[i] = float64(utf8.RuneCountInString(example.Prompt))
		responses[i] = float64(utf8.RuneCountInString(example.Response))
		tokens += llm.ApproxNumTokens(example.Text)
	}
	return SplitStats{
		Count:       len(examples),
		Prompt:      lengthStats(prompts),
		Response:    lengthStats(responses),
		TotalTokens: tokens,
	}
}

// Summary is everything the converter reports after a run.
type Summary struct {
	TotalLines  int
	Valid       int
	ParseErrors int
	Invalid     int
	SuccessRate float64
	Train       SplitStats
	Val         SplitStats
}

func Summarize(result *Result) Summary {
	return Summary{
		TotalLines:  result.Read.TotalLines,
		Valid:       result.Read.Valid(),
		ParseErrors: len(result.Read.ParseErrors),
		Invalid:     len(result.Read.Invalid),
		SuccessRate: result.Read.SuccessRate(),
		Train:       ComputeSplitStats(result.Train),
		Val:         ComputeSplitStats(result.Val),
	}
}

// Report prints the run summary.
func (s Summary) Report(w io.Writer) {
	fmt.Fprintf(w, "Total entries: %d\n", s.TotalLines)
	fmt.Fprintf(w, "Valid: %d (%.1f%% success rate)\n", s.Valid, s.SuccessRate*100)
	fmt.Fprintf(w, "Skipped: %d parse errors, %d invalid records\n", s.ParseErrors, s.Invalid)
	reportSplit(w, "Train", s.Train)
	reportSplit(w, "Val", s.Val)
}

func reportSplit(w io.Writer, name string, stats SplitStats) {
	fmt.Fprintf(w, "%s: %d examples, ~%d tokens\n", name, stats.Count, stats.TotalTokens)
	fmt.Fprintf(w, "  query chars: min %d, max %d, avg %.1f\n", stats.Prompt.Min, stats.Prompt.Max, stats.Prompt.Mean)
	fmt.Fprintf(w, "  response chars: min %d, max %d, avg %.1f\n", stats.Response.Min, stats.Response.Max, stats.Response.Mean)
}
