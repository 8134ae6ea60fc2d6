package lexclean

import (
	"regexp"
	"strings"

	"qmd_datagen/expansion"
)

// FillerWords are padding terms an earlier generation pass stuffed into lex
// expansions. They are only removed when they are not part of the query's own
// intent.
var FillerWords = []string{
	"overview",
	"tutorial",
	"guide",
	"examples",
	"documentation",
	"best practices",
}

var fillerPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(FillerWords))
	for _, word := range FillerWords {
		patterns[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return patterns
}()

// Sample is one before/after lex diff, kept for the run report.
type Sample struct {
	Query  string
	Before string
	After  string
}

// Result is the outcome of cleaning one dataset.
type Result struct {
	Records         []expansion.Record
	RecordsModified int
	LexCleaned      int
	Samples         []Sample
}

const maxSamples = 15

// Clean removes excess filler words from every record's lex entries. A filler
// occurrence is excess when the lex entry contains it more times than the
// query does.
func Clean(records []expansion.Record) *Result {
	result := &Result{Records: make([]expansion.Record, len(records))}
	for i, record := range records {
		cleaned, modified := cleanRecord(record, result)
		result.Records[i] = cleaned
		if modified {
			result.RecordsModified++
		}
	}
	return result
}

func cleanRecord(record expansion.Record, result *Result) (expansion.Record, bool) {
	modified := false
	newLex := make([]string, len(record.Lex))
	for i, lex := range record.Lex {
		// Entries with nothing to clean pass through untouched, odd
		// spacing and all.
		if !HasExcessFiller(lex, record.Query) {
			newLex[i] = lex
			continue
		}
		cleaned := CleanEntry(lex, record.Query)
		newLex[i] = cleaned
		if cleaned != lex {
			modified = true
			result.LexCleaned++
			if len(result.Samples) < maxSamples {
				result.Samples = append(result.Samples, Sample{
					Query:  record.Query,
					Before: lex,
					After:  cleaned,
				})
			}
		}
	}
	record.Lex = newLex
	return record, modified
}

// HasExcessFiller reports whether a lex entry carries more occurrences of any
// filler word than the query itself does.
func HasExcessFiller(lex string, query string) bool {
	for _, word := range FillerWords {
		if countWord(lex, word) > countWord(query, word) {
			return true
		}
	}
	return false
}

// CleanEntry removes from a lex entry every filler occurrence beyond the
// count the query itself carries, then collapses whitespace.
func CleanEntry(lex string, query string) string {
	result := lex
	for _, word := range FillerWords {
		pattern := fillerPatterns[word]
		excess := countWord(result, word) - countWord(query, word)
		for ; excess > 0; excess-- {
			loc := pattern.FindStringIndex(result)
			if loc == nil {
				break
			}
			result = result[:loc[0]] + result[loc[1]:]
		}
	}
	return strings.Join(strings.Fields(result), " ")
}

func countWord(text string, word string) int {
	return len(fillerPatterns[word].FindAllStringIndex(text, -1))
}
