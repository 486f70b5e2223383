package importer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a CSV export. With EncodingAuto the bytes are decoded as UTF-8
// first when they carry a BOM or are valid non-ASCII UTF-8, and as GBK first
// otherwise. Every encoding falls back to the other one before
// ErrHeaderNotFound is returned.
func (p *Parser) ParseCSV(ctx context.Context, r io.Reader) (*Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return &Result{}, fmt.Errorf("failed to read CSV: %w", err)
	}

	for _, enc := range encodingOrder(p.encoding, raw) {
		text, err := decode(raw, enc)
		if err != nil {
			continue
		}
		result, found, err := p.parseCSVText(ctx, text)
		if err != nil {
			return result, err
		}
		if found {
			return result, nil
		}
	}

	return &Result{Format: FormatCSV}, ErrHeaderNotFound
}

func encodingOrder(enc Encoding, raw []byte) []Encoding {
	utf8First := []Encoding{EncodingUTF8, EncodingGBK}
	switch enc {
	case EncodingUTF8:
		return utf8First
	case EncodingGBK:
		return []Encoding{EncodingGBK, EncodingUTF8}
	}
	if bytes.HasPrefix(raw, utf8BOM) || (utf8.Valid(raw) && !isASCII(raw)) {
		return utf8First
	}
	return []Encoding{EncodingGBK, EncodingUTF8}
}

func isASCII(raw []byte) bool {
	for _, b := range raw {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func decode(raw []byte, enc Encoding) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if enc == EncodingUTF8 {
		return string(raw), nil
	}
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode GBK: %w", err)
	}
	return string(out), nil
}

// parseCSVText reports found=false when no header row exists in text.
func (p *Parser) parseCSVText(ctx context.Context, text string) (*Result, bool, error) {
	result := &Result{Format: FormatCSV}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cols   columns
		header bool
		line   int
	)
	for scanner.Scan() {
		line++
		if line%500 == 0 && ctx.Err() != nil {
			return result, header, ctx.Err()
		}

		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}

		if !header {
			cells := splitLine(trimmed)
			if isHeaderRow(cells) {
				if c := mapColumns(cells); c.complete() {
					cols = c
					header = true
					result.Recognized = true
				}
			}
			continue
		}

		if strings.HasPrefix(trimmed, "---") {
			continue
		}

		record, reason := p.rowToRecord(splitLine(trimmed), cols, false)
		if record == nil {
			result.skip(line, trimmed, reason)
			continue
		}
		result.Records = append(result.Records, record)
	}
	if err := scanner.Err(); err != nil {
		return result, header, fmt.Errorf("failed to scan CSV: %w", err)
	}

	return result, header, nil
}

// rowToRecord converts one data row. A nil record comes with the reason it was rejected.
func (p *Parser) rowToRecord(row []string, cols columns, allowSerial bool) (*model.Record, string) {
	if len(row) <= cols.maxRequired() {
		return nil, fmt.Sprintf("expected at least %d columns, got %d", cols.maxRequired()+1, len(row))
	}

	date, err := parseDate(cell(row, cols.time), allowSerial)
	if err != nil {
		return nil, err.Error()
	}

	note := buildNote(cell(row, cols.counterparty), cell(row, cols.goods))
	record, err := p.newRecord(cell(row, cols.amount), date, model.ParseFlow(cell(row, cols.direction)), note)
	if err != nil {
		return nil, err.Error()
	}
	return record, ""
}
