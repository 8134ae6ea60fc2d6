package expansion

import (
	"encoding/json"
	"fmt"
)

// Record is one query-expansion training record: the original search query
// plus its lexical expansions, vector expansions, and hypothetical document.
type Record struct {
	Query string   `json:"query"`
	Lex   []string `json:"lex"`
	Vec   []string `json:"vec"`
	Hyde  string   `json:"hyde"`
}

// wireRecord covers both shapes the dataset has carried over time: the flat
// form with lex/vec/hyde fields, and the tagged form where expansions live in
// an "output" array of ["tag", "text"] pairs.
type wireRecord struct {
	Query  string      `json:"query"`
	Lex    []string    `json:"lex"`
	Vec    []string    `json:"vec"`
	Hyde   string      `json:"hyde"`
	Output [][2]string `json:"output"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Query = w.Query
	r.Lex = w.Lex
	r.Vec = w.Vec
	r.Hyde = w.Hyde
	for _, pair := range w.Output {
		tag, text := pair[0], pair[1]
		switch tag {
		case "lex":
			r.Lex = append(r.Lex, text)
		case "vec":
			r.Vec = append(r.Vec, text)
		case "hyde":
			r.Hyde = text
		}
	}
	return nil
}

// MarshalJSON writes the flat form.
func (r Record) MarshalJSON() ([]byte, error) {
	type flat Record
	return json.Marshal(flat(r))
}

// ValidationError reports a record that is missing a required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record missing required field %q", e.Field)
}

// Validate checks that all three expansion fields are present and non-empty.
func (r *Record) Validate() error {
	if len(r.Lex) == 0 {
		return &ValidationError{Field: "lex"}
	}
	if len(r.Vec) == 0 {
		return &ValidationError{Field: "vec"}
	}
	if r.Hyde == "" {
		return &ValidationError{Field: "hyde"}
	}
	return nil
}
