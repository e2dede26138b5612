package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"matchsim.ai/internal/decision"
)

const CyclePrefix = "cycles"

// CycleTrace writes one JSONL entry per planning cycle (compressed).
type CycleTrace struct {
	w      *JSONLZstdWriter
	logger *stdlog.Logger
}

func NewCycleTrace(dir string, logger *stdlog.Logger) *CycleTrace {
	if logger == nil {
		logger = stdlog.New(io.Discard, "", 0)
	}
	return &CycleTrace{w: NewJSONLZstdWriter(dir, CyclePrefix), logger: logger}
}

// RecordCycle implements decision.CycleRecorder. Write errors are logged, not returned.
func (t *CycleTrace) RecordCycle(r decision.CycleRecord) {
	if err := t.w.Write(r); err != nil {
		t.logger.Printf("cycle trace write %s: %v", r.CycleID, err)
	}
}

func (t *CycleTrace) Close() error { return t.w.Close() }

// TraceFiles lists cycle trace files under dir in chronological order.
func TraceFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, CyclePrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadCycles decodes every record in one trace file. A file that was appended
// to across restarts holds several zstd frames; the decoder reads through them.
func ReadCycles(path string, fn func(decision.CycleRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec decision.CycleRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadDir reads all traces under dir in order.
func ReadDir(dir string, fn func(decision.CycleRecord) error) error {
	paths, err := TraceFiles(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := ReadCycles(p, fn); err != nil {
			return err
		}
	}
	return nil
}
