package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rookery-dev/rookery/internal/core/fsutil"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

// recordsFileName is the per-provider install ledger, kept at the root of
// the provider's directory.
const recordsFileName = "rookery.lock.json"

const recordsVersion = 1

// Record links a provider to a placed resource and the placement method
// used. At most one record exists per (provider, resource) pair;
// reinstalling overwrites the record rather than duplicating it.
type Record struct {
	ResourceID    string        `json:"resourceId"`
	Kind          resource.Kind `json:"kind"`
	SourceID      string        `json:"sourceId"`
	Name          string        `json:"name,omitempty"`
	InstalledPath string        `json:"installedPath"`
	Method        Method        `json:"method"`
	Checksum      string        `json:"checksum,omitempty"`
	InstalledAt   time.Time     `json:"installedAt"`
}

// recordsFile is the on-disk shape of the ledger.
type recordsFile struct {
	Version int      `json:"lockVersion"`
	Records []Record `json:"records"`
}

// loadRecords reads the ledger for a provider directory. A missing file is
// an empty ledger, not an error.
func loadRecords(providerDir string) (*recordsFile, error) {
	path := filepath.Join(providerDir, recordsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &recordsFile{Version: recordsVersion}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", resource.ErrIO, path, err)
	}

	var f recordsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", resource.ErrParse, path, err)
	}
	if f.Version == 0 {
		f.Version = recordsVersion
	}
	return &f, nil
}

// saveRecords writes the ledger back atomically.
func saveRecords(providerDir string, f *recordsFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding install records: %v", resource.ErrIO, err)
	}
	data = append(data, '\n')
	path := filepath.Join(providerDir, recordsFileName)
	if err := fsutil.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", resource.ErrIO, path, err)
	}
	return nil
}

// upsertRecord inserts or replaces the record for its resource id.
func upsertRecord(providerDir string, rec Record) error {
	f, err := loadRecords(providerDir)
	if err != nil {
		return err
	}
	f.upsert(rec)
	return saveRecords(providerDir, f)
}

// Records lists the install records of a provider directory.
func Records(providerDir string) ([]Record, error) {
	f, err := loadRecords(providerDir)
	if err != nil {
		return nil, err
	}
	return f.Records, nil
}

func (f *recordsFile) find(resourceID string) *Record {
	for idx := range f.Records {
		if f.Records[idx].ResourceID == resourceID {
			return &f.Records[idx]
		}
	}
	return nil
}

func (f *recordsFile) upsert(rec Record) {
	for idx := range f.Records {
		if f.Records[idx].ResourceID == rec.ResourceID {
			f.Records[idx] = rec
			return
		}
	}
	f.Records = append(f.Records, rec)
}

func (f *recordsFile) remove(resourceID string) {
	for idx := range f.Records {
		if f.Records[idx].ResourceID == resourceID {
			f.Records = append(f.Records[:idx], f.Records[idx+1:]...)
			return
		}
	}
}
