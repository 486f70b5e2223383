// Package importer turns bank and e-wallet export files into unclassified records.
//
// CSV exports (Alipay, WeChat Pay and most banks) and Excel workbooks are read by
// locating their header row. Rows that cannot be parsed are reported in
// Result.Skipped and never abort the import.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/google/uuid"
)

// Import errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrHeaderNotFound    = errors.New("no header row found")
	ErrUnknownEncoding   = errors.New("unknown encoding")
)

// Encoding selects how CSV bytes are decoded.
type Encoding string

// Supported encodings.
const (
	EncodingAuto Encoding = "auto"
	EncodingGBK  Encoding = "gbk"
	EncodingUTF8 Encoding = "utf-8"
)

// ParseEncoding validates a configured encoding name.
func ParseEncoding(raw string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return EncodingAuto, nil
	case "gbk", "gb18030", "gb2312":
		return EncodingGBK, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, raw)
	}
}

// Format is the detected kind of input file.
type Format string

// Recognized formats.
const (
	FormatCSV      Format = "csv"
	FormatWorkbook Format = "workbook"
)

// DetectFormat maps a file name to its format by extension.
func DetectFormat(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, true
	case ".xlsx", ".xls":
		return FormatWorkbook, true
	default:
		return "", false
	}
}

// RowError describes a row that was skipped.
type RowError struct {
	Raw    string
	Reason string
	Line   int
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result is the outcome of parsing one file.
type Result struct {
	Format     Format
	Records    []*model.Record
	Skipped    []RowError
	Recognized bool
}

// Empty reports whether the file was recognized but produced no records.
func (r *Result) Empty() bool {
	return r.Recognized && len(r.Records) == 0
}

// Options configures a Parser.
type Options struct {
	Now      func() time.Time
	NewID    func() string
	Encoding Encoding
}

// Parser converts export files into records.
type Parser struct {
	now      func() time.Time
	newID    func() string
	encoding Encoding
}

// NewParser creates a parser. Zero options select auto encoding, wall-clock time
// and random UUIDs.
func NewParser(opts Options) *Parser {
	p := &Parser{
		now:      opts.Now,
		newID:    opts.NewID,
		encoding: opts.Encoding,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	if p.encoding == "" {
		p.encoding = EncodingAuto
	}
	return p
}

// ParseFile reads the file at path. An unrecognized extension yields an empty,
// unrecognized Result together with ErrUnsupportedFormat.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	format, ok := DetectFormat(path)
	if !ok {
		return &Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return &Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var result *Result
	switch format {
	case FormatCSV:
		result, err = p.ParseCSV(ctx, f)
	case FormatWorkbook:
		result, err = p.ParseWorkbook(ctx, f)
	}
	if err != nil {
		return result, err
	}

	slog.Info("Parsed import file",
		"path", path,
		"format", string(format),
		"records", len(result.Records),
		"skipped", len(result.Skipped))
	return result, nil
}

// newRecord builds an unclassified record stamped with the parser's clock and ID source.
func (p *Parser) newRecord(amount string, occurredOn time.Time, flow model.FlowDirection, note string) (*model.Record, error) {
	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	r := model.NewRecord(value, occurredOn, flow, note)
	r.ID = p.newID()
	r.RecordedAt = p.now()
	return r, nil
}

// skip records a row failure and logs it.
func (r *Result) skip(line int, raw, reason string) {
	slog.Warn("Skipping unparseable row", "line", line, "reason", reason)
	r.Skipped = append(r.Skipped, RowError{Line: line, Raw: raw, Reason: reason})
}
