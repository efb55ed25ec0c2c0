package store

import (
	"fmt"
	"log"
	"os"
)

// MigrateFromFile imports a legacy JSON state export (the single-file format
// older installs saved) into the store. It is a no-op when the file does not
// exist or the store already holds state, so reruns are safe.
func MigrateFromFile(path string, s *Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read legacy state: %w", err)
	}

	existing, err := s.Load()
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("[store] state already present, skipping legacy import from %s", path)
		return nil
	}

	rec, ok := decodeRecord(data)
	if !ok {
		log.Printf("[store] legacy state %s is unreadable, starting fresh", path)
		return nil
	}
	if err := s.Save(rec); err != nil {
		return fmt.Errorf("import legacy state: %w", err)
	}
	log.Printf("[store] imported legacy state from %s", path)
	return nil
}
