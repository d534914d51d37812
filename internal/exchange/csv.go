// Package exchange reads and writes the semicolon separated bulk file used to
// share rotations with spreadsheets.
//
// Files are UTF-8 with a byte order mark, one row per assignment:
//
//	data;dia_semana;hora;ciclo;funcao;organista;telefone;igreja
package exchange

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/normalize"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// Header lists the columns of the bulk file in order.
var Header = []string{"data", "dia_semana", "hora", "ciclo", "funcao", "organista", "telefone", "igreja"}

const (
	labelPrelude = "meia_hora"
	labelService = "culto"
)

// ErrHeader is returned when a file does not start with the expected header.
var ErrHeader = errors.New("exchange: unexpected header")

// Row is one decoded line of a bulk file.
type Row struct {
	Line     int
	Date     time.Time
	Weekday  string
	Time     string
	Cycle    int
	Role     scheduler.Role
	Musician string
	Phone    string
	Church   string
}

// RowError reports a malformed line.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("exchange: line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// RoleLabel returns the label written for role.
func RoleLabel(role scheduler.Role) string {
	if role == scheduler.RolePrelude {
		return labelPrelude
	}
	return labelService
}

// Encode writes items as a bulk file for churchName.
func Encode(w io.Writer, churchName string, items []scheduler.Assignment) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)
	cw.Comma = ';'

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("exchange: write header: %w", err)
	}
	for _, item := range items {
		record := []string{
			item.Date.Format(calendar.BrazilianDateLayout),
			calendar.WeekdayPT(item.Date.Weekday()),
			item.Time,
			strconv.Itoa(item.CycleNumber),
			RoleLabel(item.Role),
			item.MusicianName,
			item.MusicianPhone,
			churchName,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("exchange: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("exchange: flush: %w", err)
	}
	return tw.Close()
}

// Decode reads a bulk file. The byte order mark is optional. Dates are parsed
// in loc.
func Decode(r io.Reader, loc *time.Location) ([]Row, error) {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	tr := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(tr)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrHeader
		}
		return nil, fmt.Errorf("exchange: read header: %w", err)
	}
	if !headerMatches(header) {
		return nil, ErrHeader
	}

	rows := make([]Row, 0)
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("exchange: read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		row, err := parseRecord(record, line, loc)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func headerMatches(header []string) bool {
	if len(header) < len(Header) {
		return false
	}
	for i, name := range Header {
		if strings.ToLower(strings.TrimSpace(header[i])) != name {
			return false
		}
	}
	return true
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string, line int, loc *time.Location) (Row, error) {
	for len(record) < len(Header) {
		record = append(record, "")
	}
	row := Row{
		Line:     line,
		Weekday:  strings.TrimSpace(record[1]),
		Musician: strings.TrimSpace(record[5]),
		Phone:    strings.TrimSpace(record[6]),
		Church:   strings.TrimSpace(record[7]),
	}

	date, err := time.ParseInLocation(calendar.BrazilianDateLayout, strings.TrimSpace(record[0]), loc)
	if err != nil {
		return Row{}, &RowError{Line: line, Column: "data", Err: err}
	}
	row.Date = date

	clock, err := calendar.ParseClock(record[2])
	if err != nil {
		return Row{}, &RowError{Line: line, Column: "hora", Err: err}
	}
	row.Time = clock

	if value := strings.TrimSpace(record[3]); value != "" {
		cycle, err := strconv.Atoi(value)
		if err != nil || cycle < 0 {
			return Row{}, &RowError{Line: line, Column: "ciclo", Err: fmt.Errorf("invalid cycle %q", value)}
		}
		row.Cycle = cycle
	}

	role, err := scheduler.ParseRole(record[4])
	if err != nil {
		return Row{}, &RowError{Line: line, Column: "funcao", Err: err}
	}
	row.Role = role

	if row.Musician == "" {
		return Row{}, &RowError{Line: line, Column: "organista", Err: errors.New("musician is required")}
	}
	return row, nil
}

// Key identifies a row for duplicate detection: date, service (time and
// cycle), role and accent-insensitive musician name.
func (r Row) Key() string {
	return strings.Join([]string{
		r.Date.Format(calendar.DateLayout),
		r.Time,
		strconv.Itoa(r.Cycle),
		r.Role.String(),
		normalize.NameKey(r.Musician),
	}, "|")
}

// Dedupe keeps the first row of each key and returns the rest as duplicates.
func Dedupe(rows []Row) (unique, duplicates []Row) {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := row.Key()
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, row)
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, row)
	}
	return unique, duplicates
}
