package repair

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Checkpoint records hyde-repair progress so an interrupted run can resume
// without re-spending model calls. Keys of ProcessedQueries are record
// indices in the input dataset, encoded as decimal strings.
type Checkpoint struct {
	ProcessedQueries map[string]string `json:"processed_queries"`
	CompletedIndices []int             `json:"completed_indices"`
}

func NewCheckpoint() *Checkpoint {
	return &Checkpoint{ProcessedQueries: map[string]string{}}
}

// Completed returns the completed indices as a set.
func (c *Checkpoint) Completed() map[int]struct{} {
	set := make(map[int]struct{}, len(c.CompletedIndices))
	for _, idx := range c.CompletedIndices {
		set[idx] = struct{}{}
	}
	return set
}

func (c *Checkpoint) MarkDone(idx int, newHyde string) {
	key := strconv.Itoa(idx)
	if _, ok := c.ProcessedQueries[key]; !ok {
		c.CompletedIndices = append(c.CompletedIndices, idx)
	}
	c.ProcessedQueries[key] = newHyde
}

// CheckpointStore persists a Checkpoint as JSON on disk.
type CheckpointStore struct {
	path string
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

func (s *CheckpointStore) Path() string {
	return s.path
}

// Load reads the checkpoint, starting fresh when the file does not exist or
// cannot be decoded.
func (s *CheckpointStore) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("checkpoint not found at %s, starting fresh", s.path)
		return NewCheckpoint(), nil
	}
	if err != nil {
		return nil, err
	}
	checkpoint := NewCheckpoint()
	if err := json.Unmarshal(data, checkpoint); err != nil {
		log.Printf("error unmarshalling checkpoint, starting fresh: %v", err)
		return NewCheckpoint(), nil
	}
	if checkpoint.ProcessedQueries == nil {
		checkpoint.ProcessedQueries = map[string]string{}
	}
	return checkpoint, nil
}

func (s *CheckpointStore) Save(checkpoint *Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(checkpoint)
}
