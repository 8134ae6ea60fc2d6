package chatml

import (
	"strings"

	"qmd_datagen/expansion"
	"qmd_datagen/utils/slicesx"
)

// Literal turn markers, passed through verbatim to the training file.
const (
	StartOfText = "<|startoftext|>"
	StartOfTurn = "<|im_start|>"
	EndOfTurn   = "<|im_end|>"
)

const promptPrefix = "Expand this search query: "

// Example is one ChatML training example derived from a single expansion
// record. SourceIndex identifies the record it came from.
type Example struct {
	Prompt      string
	Response    string
	Text        string
	SourceIndex int
}

// Format renders a record into the ChatML template: one "lex:" line per
// lexical expansion, one "vec:" line per vector expansion, then exactly one
// "hyde:" line.
func Format(record expansion.Record, sourceIndex int) Example {
	prompt := promptPrefix + record.Query

	var response strings.Builder
	for _, lex := range record.Lex {
		response.WriteString("lex: ")
		response.WriteString(lex)
		response.WriteString("\n")
	}
	for _, vec := range record.Vec {
		response.WriteString("vec: ")
		response.WriteString(vec)
		response.WriteString("\n")
	}
	response.WriteString("hyde: ")
	response.WriteString(record.Hyde)

	var text strings.Builder
	text.WriteString(StartOfText)
	text.WriteString(StartOfTurn)
	text.WriteString("user\n")
	text.WriteString(prompt)
	text.WriteString(EndOfTurn)
	text.WriteString("\n")
	text.WriteString(StartOfTurn)
	text.WriteString("assistant\n")
	text.WriteString(response.String())
	text.WriteString("\n")
	text.WriteString(EndOfTurn)

	return Example{
		Prompt:      prompt,
		Response:    response.String(),
		Text:        text.String(),
		SourceIndex: sourceIndex,
	}
}

// FormatAll renders every record, preserving input order.
func FormatAll(records []expansion.Record) []Example {
	return slicesx.Map(records, func(record expansion.Record, i int) Example {
		return Format(record, i)
	})
}
