package heatstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/langwarden/langwarden/automod/heat"
)

// FileHeatStore keeps one record per line:
//
//	name heat lastActionTicks stableID
//
// with heat to four decimals and "Unknown" for a missing id.
type FileHeatStore struct {
	Path string
}

func NewFileHeatStore(p string) *FileHeatStore {
	return &FileHeatStore{Path: p}
}

// A missing file is an empty ledger. Malformed lines are skipped and reported
// in the returned error alongside the parsed records.
func (s *FileHeatStore) Load(ctx context.Context) ([]heat.Record, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadRecords(f)
}

func (s *FileHeatStore) Save(ctx context.Context, recs []heat.Record) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteRecords(tmp, recs); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

func FormatRecord(r heat.Record) string {
	id := r.StableID
	if id == "" {
		id = UnknownID
	}
	return fmt.Sprintf("%s %s %d %s", r.Name, strconv.FormatFloat(r.Heat, 'f', 4, 64), ToTicks(r.LastAction), id)
}

func ParseRecord(line string) (heat.Record, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return heat.Record{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}
	// older files were written with a locale decimal separator
	h, err := strconv.ParseFloat(strings.ReplaceAll(fields[1], ",", "."), 64)
	if err != nil {
		return heat.Record{}, fmt.Errorf("heat: %w", err)
	}
	ticks, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return heat.Record{}, fmt.Errorf("ticks: %w", err)
	}
	rec := heat.Record{
		Name:       fields[0],
		Heat:       h,
		LastAction: FromTicks(ticks),
	}
	if len(fields) == 4 && fields[3] != UnknownID {
		rec.StableID = fields[3]
	}
	return rec, nil
}

func ReadRecords(r io.Reader) ([]heat.Record, error) {
	var out []heat.Record
	var errs []error
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n, err))
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return out, errors.Join(errs...)
}

func WriteRecords(w io.Writer, recs []heat.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if _, err := bw.WriteString(FormatRecord(r) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
