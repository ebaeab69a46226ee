package memory

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Store persists ledger records as JSON lines, one record per line, appended
// as they commit. A store survives process restarts: reopening it returns
// everything previously written.
type Store struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenStore opens or creates the transcript file at path and returns the
// records it already holds, oldest first. Lines that fail to parse are
// skipped rather than failing the open, so a torn final write does not lose
// the session.
func OpenStore(path string) (*Store, []Record, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening transcript: %w", err)
	}

	records, err := readRecords(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("error reading transcript: %w", err)
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("error seeking transcript: %w", err)
	}

	return &Store{file: file, enc: json.NewEncoder(file)}, records, nil
}

func readRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Append writes one record to the transcript.
func (s *Store) Append(record Record) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("transcript store is closed")
	}
	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("error writing transcript record: %w", err)
	}
	return nil
}

// Close flushes and closes the transcript file. Append after Close fails.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.enc = nil
	return err
}
