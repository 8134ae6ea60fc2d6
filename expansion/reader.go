package expansion

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseError reports a line that could not be decoded as a record.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadResult holds the valid records from one pass over a JSONL dataset,
// along with everything that was skipped on the way.
type ReadResult struct {
	Records     []Record
	TotalLines  int
	ParseErrors []*ParseError
	Invalid     []*ValidationError
}

// Valid returns the number of records that survived parsing and validation.
func (r *ReadResult) Valid() int {
	return len(r.Records)
}

// SuccessRate is valid records over total non-blank lines.
func (r *ReadResult) SuccessRate() float64 {
	if r.TotalLines == 0 {
		return 0
	}
	return float64(len(r.Records)) / float64(r.TotalLines)
}

// ReadFile reads a JSONL dataset from disk. See Read.
func ReadFile(path string) (*ReadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

// Read parses newline-delimited records. Malformed lines and records missing
// a required field are skipped and counted, never fatal; only the underlying
// reader failing is an error.
func Read(r io.Reader) (*ReadResult, error) {
	result := &ReadResult{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	fileLine := 0
	for scanner.Scan() {
		fileLine++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.TotalLines++
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			result.ParseErrors = append(result.ParseErrors, &ParseError{Line: fileLine, Err: err})
			continue
		}
		if err := record.Validate(); err != nil {
			result.Invalid = append(result.Invalid, err.(*ValidationError))
			continue
		}
		result.Records = append(result.Records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReadAllFile reads a JSONL dataset from disk without filtering. See ReadAll.
func ReadAllFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadAll(file)
}

// ReadAll parses every record, keeping records that would fail validation.
// Rewrite pipelines use it so their output holds exactly the records of the
// input and record indices stay stable; a malformed line is an error rather
// than a silent drop.
func ReadAll(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	fileLine := 0
	for scanner.Scan() {
		fileLine++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, &ParseError{Line: fileLine, Err: err}
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteFile serializes records as JSONL, one flat object per line.
func WriteFile(path string, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	encoder := json.NewEncoder(w)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return err
		}
	}
	return w.Flush()
}
