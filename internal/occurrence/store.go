package occurrence

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName      = ".nopea"
	occurrenceDir = "occurrences"
	coldFileName  = "occurrence.json"
)

// Persist writes occ to the cold path ({cwd}/.nopea/occurrence.json,
// pretty JSON) and the warm path ({cwd}/.nopea/occurrences/{id}.etf, a
// gob-encoded binary term), per spec §4.9. Directory creation is
// idempotent.
//
// The warm path's ".etf" extension names the spec's binary term
// encoding role, not literal Erlang External Term Format — see
// DESIGN.md for why encoding/gob fills that role here.
func Persist(root string, occ Occurrence) error {
	base := filepath.Join(root, dirName)
	occDir := filepath.Join(base, occurrenceDir)
	if err := os.MkdirAll(occDir, 0o755); err != nil {
		return fmt.Errorf("create occurrence directory: %w", err)
	}

	coldBody, err := json.MarshalIndent(occ, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal occurrence: %w", err)
	}
	if err := os.WriteFile(filepath.Join(base, coldFileName), coldBody, 0o644); err != nil {
		return fmt.Errorf("write occurrence.json: %w", err)
	}

	var warmBody bytes.Buffer
	if err := gob.NewEncoder(&warmBody).Encode(occ); err != nil {
		return fmt.Errorf("encode occurrence term: %w", err)
	}
	warmPath := filepath.Join(occDir, occ.ID+".etf")
	if err := os.WriteFile(warmPath, warmBody.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write occurrence term: %w", err)
	}

	return nil
}

// Load reads back a previously persisted occurrence term from the warm
// path, used by the nopea_explain tool-call surface.
func Load(root, id string) (Occurrence, error) {
	path := filepath.Join(root, dirName, occurrenceDir, id+".etf")
	body, err := os.ReadFile(path)
	if err != nil {
		return Occurrence{}, fmt.Errorf("read occurrence term: %w", err)
	}
	var occ Occurrence
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&occ); err != nil {
		return Occurrence{}, fmt.Errorf("decode occurrence term: %w", err)
	}
	return occ, nil
}
