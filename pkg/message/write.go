package message

import (
	"encoding/json"
	"fmt"
	"io"
)

// Write serializes env as one JSON object followed by a single newline.
// It is the only place the wire format touches an io.Writer; callers are
// responsible for ensuring a single writer per stream (the reply stage is
// the sole writer of stdout after startup).
func Write(w io.Writer, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("message: write envelope: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("message: write envelope: %w", err)
	}
	return nil
}
