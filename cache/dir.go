package cache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Shift-AC/spreadsheet-plotter/opseq"
)

const entryExt = ".splnk"

// Entry is one checkpoint file of the directory, header already decoded.
type Entry struct {
	Seq    int
	Path   string
	Header Header
}

// Dir is a checkpoint directory for one data source. It keeps an open
// handle on the directory for the process lifetime, which is an advisory
// protection against concurrent deletion, nothing more. Two processes
// racing to extend the same prefix are tolerated, checkpoint computation
// is deterministic so last write wins.
type Dir struct {
	path    string
	handle  *os.File
	logger  *zap.Logger
	entries []Entry
}

// OpenDir opens (creating if needed) a checkpoint directory and decodes
// every entry header. A history that is not monotonically extending, ie
// where some entry's prefix is not a string prefix of the next one, is a
// corruption error, never silently ignored.
func OpenDir(path string, logger *zap.Logger) (*Dir, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	handle, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache directory: %w", err)
	}

	d := &Dir{
		path:   path,
		handle: handle,
		logger: logger,
	}
	if err := d.scan(); err != nil {
		handle.Close()
		return nil, err
	}
	return d, nil
}

func (self *Dir) scan() error {
	names, err := self.handle.Readdirnames(-1)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}

	for _, name := range names {
		if !strings.HasSuffix(name, entryExt) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(name, entryExt))
		if err != nil {
			continue
		}

		path := filepath.Join(self.path, name)
		hdr, err := readEntryHeader(path)
		if err != nil {
			return fmt.Errorf("cache entry %s: %w", name, err)
		}
		self.entries = append(self.entries, Entry{
			Seq:    seq,
			Path:   path,
			Header: *hdr,
		})
	}

	sort.Slice(self.entries, func(a, b int) bool {
		return self.entries[a].Seq < self.entries[b].Seq
	})

	for i := 1; i < len(self.entries); i++ {
		prev := &self.entries[i-1]
		cur := &self.entries[i]
		if !strings.HasPrefix(cur.Header.OpStr, prev.Header.OpStr) {
			return fmt.Errorf(
				"corrupt cache history: entry %d (%q) does not extend "+
					"entry %d (%q)",
				cur.Seq,
				cur.Header.OpStr,
				prev.Seq,
				prev.Header.OpStr,
			)
		}
	}

	self.logger.Debug("cache directory scanned",
		zap.String("path", self.path),
		zap.Int("entries", len(self.entries)),
	)
	return nil
}

func readEntryHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// Match finds the deepest stored prefix usable for the requested sequence.
// Only entries whose header matches key count, a zero length match is never
// usable and ties break to the most recently stored entry. The returned
// index is the operator position to resume from.
func (self *Dir) Match(key *Header, seq *opseq.OpSeq) (*Entry, int, bool) {
	var best *Entry
	resume := 0
	for i := range self.entries {
		e := &self.entries[i]
		if !e.Header.MatchesSource(key) {
			continue
		}
		k, ok := seq.MatchPrefix(e.Header.OpStr)
		if !ok {
			continue
		}
		if best == nil ||
			len(e.Header.OpStr) > len(best.Header.OpStr) ||
			(len(e.Header.OpStr) == len(best.Header.OpStr) &&
				e.Seq > best.Seq) {
			best = e
			resume = k
		}
	}
	if best == nil {
		return nil, 0, false
	}
	self.logger.Info("cache hit",
		zap.String("prefix", best.Header.OpStr),
		zap.Int("resume", resume),
	)
	return best, resume, true
}

// Load reads the full checkpoint of an entry, payload included.
func (self *Dir) Load(e *Entry) (*Checkpoint, error) {
	f, err := os.Open(e.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache entry: %w", err)
	}
	defer f.Close()
	cp, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("cache entry %s: %w", e.Path, err)
	}
	return cp, nil
}

// Append durably writes a new checkpoint as the next entry of the history.
// Once written the entry stays valid even if the rest of the run fails.
func (self *Dir) Append(cp *Checkpoint) error {
	seq := 1
	if n := len(self.entries); n > 0 {
		seq = self.entries[n-1].Seq + 1
	}
	path := filepath.Join(self.path, fmt.Sprintf("%04d%s", seq, entryExt))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	if err := cp.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close cache entry: %w", err)
	}

	self.entries = append(self.entries, Entry{
		Seq:    seq,
		Path:   path,
		Header: cp.Header,
	})
	self.logger.Info("checkpoint saved",
		zap.String("path", path),
		zap.String("prefix", cp.Header.OpStr),
	)
	return nil
}

func (self *Dir) Entries() []Entry {
	return self.entries
}

func (self *Dir) Close() error {
	return self.handle.Close()
}
