package vocab

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

func (v *Vocabulary) loadGob(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&v.Entries); err != nil {
		return fmt.Errorf("decode gob: %w", err)
	}
	return nil
}

// SaveGob writes entries to a gob file at path for faster loading.
func SaveGob(entries []harmonize.CanonicalEntry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
