package history

import (
	"encoding/json"
	"fmt"
	"io"
)

// exportDocument is the JSON shape written by Export.
type exportDocument struct {
	CurrentIndex int             `json:"currentIndex"`
	Capacity     int             `json:"capacity"`
	Steps        []ExecutionStep `json:"steps"`
}

// Export writes the whole history as an indented JSON document for display
// by other tools.
func (s *Store) Export(w io.Writer) error {
	s.mu.RLock()
	doc := exportDocument{
		CurrentIndex: s.cursor,
		Capacity:     s.capacity,
		Steps:        make([]ExecutionStep, len(s.steps)),
	}
	copy(doc.Steps, s.steps)
	s.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	return nil
}
