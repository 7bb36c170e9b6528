package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neosense/neosense/pkg/report"
)

const latestAlias = "latest"

// FileStore persists one JSON document per run under a root directory,
// with latest.json as an alias rewritten on every Put.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed store rooted at the given directory.
// The directory is created if it does not exist.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &StoreError{Op: "init", Err: err}
	}

	return &FileStore{root: root}, nil
}

func (s *FileStore) Put(ctx context.Context, runID string, rep *report.Report) error {
	if err := validateRunID(runID); err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	record := Record{RunID: runID, Report: rep, StoredAt: time.Now().UTC()}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	if err := s.writeAtomic(s.path(runID), data); err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	if err := s.writeAtomic(s.path(latestAlias), data); err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	return nil
}

func (s *FileStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	if err := validateRunID(runID); err != nil {
		return nil, &StoreError{Op: "get", RunID: runID, Err: err}
	}

	return s.read("get", runID)
}

func (s *FileStore) Latest(ctx context.Context) (*report.Report, error) {
	return s.read("latest", latestAlias)
}

func (s *FileStore) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return &StoreError{Op: "healthcheck", Err: err}
	}

	if !info.IsDir() {
		return &StoreError{Op: "healthcheck", Err: fmt.Errorf("%s is not a directory", s.root)}
	}

	return nil
}

func (s *FileStore) Close(ctx context.Context) error {
	return nil
}

func (s *FileStore) read(op, name string) (*report.Report, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StoreError{Op: op, RunID: name, Err: ErrReportNotFound}
		}

		return nil, &StoreError{Op: op, RunID: name, Err: err}
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &StoreError{Op: op, RunID: name, Err: err}
	}

	return record.Report, nil
}

// writeAtomic writes to a temporary file in the same directory and renames
// it into place so readers never observe a partial document.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.root, ".report-*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.root, name+".json")
}

func validateRunID(runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is empty")
	}

	if runID == latestAlias {
		return fmt.Errorf("run id %q is reserved", latestAlias)
	}

	if strings.ContainsAny(runID, "/\\") || runID != filepath.Base(runID) {
		return fmt.Errorf("run id %q contains path separators", runID)
	}

	return nil
}
