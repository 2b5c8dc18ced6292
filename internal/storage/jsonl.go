package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"transferScope/internal/model"
)

// JsonlStorage appends transfer records to a JSONL file.
// Rows are not deduplicated; replay protection comes from the checkpoint.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutTransferBatch writes the whole batch with a single append.
// On a failed write the file is truncated back to its previous size.
func (s *JsonlStorage) PutTransferBatch(ctx context.Context, records []model.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal transfer record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAtomically(s.path, buf.Bytes())
}

// RawLogArchive appends raw log records to a JSONL file.
type RawLogArchive struct {
	path string
	mu   sync.Mutex
}

func NewRawLogArchive(path string) *RawLogArchive {
	return &RawLogArchive{path: path}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (a *RawLogArchive) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, record := range logs {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal log record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return appendAtomically(a.path, buf.Bytes())
}

func appendAtomically(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat output file: %w", err)
	}
	size := stat.Size()

	if _, err := file.Write(payload); err != nil {
		if truncErr := file.Truncate(size); truncErr != nil {
			return fmt.Errorf("write batch: %v (rollback failed: %w)", err, truncErr)
		}
		return fmt.Errorf("write batch: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Truncate(size)
		return fmt.Errorf("sync output: %w", err)
	}
	return nil
}

// ReadTransfers streams transfer records from a JSONL file.
func ReadTransfers(path string, fn func(model.TransferRecord) error) error {
	return ScanJSONL(path, func(line []byte) error {
		var record model.TransferRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("decode transfer record: %w", err)
		}
		return fn(record)
	})
}

// ScanJSONL calls fn for every non-empty line of a JSONL file.
func ScanJSONL(path string, fn func(line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

// RejectLog appends rejected-log entries to a JSONL file.
type RejectLog struct {
	path string
	mu   sync.Mutex
}

func NewRejectLog(path string) *RejectLog {
	return &RejectLog{path: path}
}

func (r *RejectLog) Put(record model.DecodeErrorRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal reject: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	return appendAtomically(r.path, line)
}
