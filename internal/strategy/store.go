package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"accord/internal/logging"
)

// storeFile is the on-disk shape of the strategy store.
type storeFile struct {
	GlobalStats map[Strategy]*Stats          `json:"globalStats"`
	Contexts    map[string]map[Strategy]*Stats `json:"contexts"`
}

func newStoreFile() *storeFile {
	return &storeFile{
		GlobalStats: make(map[Strategy]*Stats),
		Contexts:    make(map[string]map[Strategy]*Stats),
	}
}

// loadStore reads the stats file. A missing file yields an empty store.
func loadStore(path string) (*storeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newStoreFile(), nil
		}
		return nil, fmt.Errorf("reading strategy store: %w", err)
	}

	sf := newStoreFile()
	if err := json.Unmarshal(data, sf); err != nil {
		return nil, fmt.Errorf("parsing strategy store: %w", err)
	}
	if sf.GlobalStats == nil {
		sf.GlobalStats = make(map[Strategy]*Stats)
	}
	if sf.Contexts == nil {
		sf.Contexts = make(map[string]map[Strategy]*Stats)
	}
	return sf, nil
}

// saveStore writes the stats file atomically via rename. Last writer wins;
// there is deliberately no file lock (single-writer assumption).
func saveStore(path string, sf *storeFile) error {
	timer := logging.StartTimer(logging.CategoryStore, "strategy store save")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling strategy store: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing strategy store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing strategy store: %w", err)
	}
	return nil
}
