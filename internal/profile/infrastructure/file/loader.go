package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	profile "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/domain"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/term"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("profile file: unsupported format")

// Load reads a prepared profile file. When year > 0 the entries are moved into
// the support year starting March 12 of year (see Redate).
func Load(path string, year int) ([]profile.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []profile.Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		entries, err = ReadCSV(f)
	case ".xlsx":
		entries, err = ReadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	if year > 0 {
		entries = Redate(entries, year)
	}
	return entries, nil
}

// ReadCSV parses "date,time,energy" records; a header row is skipped.
func ReadCSV(r io.Reader) ([]profile.Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []profile.Entry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		entry, skip, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("profile csv: line %d: %w", line, err)
		}
		if skip {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadXLSX parses the first sheet with the same columns as ReadCSV.
func ReadXLSX(r io.Reader) ([]profile.Entry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, profile.ErrEmptyProfile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var entries []profile.Entry
	for i, record := range rows {
		entry, skip, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("profile xlsx: row %d: %w", i+1, err)
		}
		if skip {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Redate moves entries into the support year starting March 12 of startYear,
// keeping month, day and time slot. March 12 to December 31 land in startYear,
// January 1 to March 11 in startYear+1, so a calendar-year profile covers
// exactly the window the ratio calculator sums. Feb 29 is dropped when the
// target year has none.
func Redate(entries []profile.Entry, startYear int) []profile.Entry {
	result := make([]profile.Entry, 0, len(entries))
	for _, entry := range entries {
		day, err := entry.Day()
		if err != nil {
			continue
		}
		moved, ok := term.SupportYearDate(startYear, day.Month(), day.Day())
		if !ok {
			continue
		}
		entry.Date = moved.Format(profile.DateLayout)
		result = append(result, entry)
	}
	return result
}

func parseRecord(record []string) (profile.Entry, bool, error) {
	if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
		return profile.Entry{}, true, nil
	}
	if len(record) < 3 {
		return profile.Entry{}, false, fmt.Errorf("%w: expected date,time,energy", profile.ErrInvalidEntry)
	}
	date := strings.TrimSpace(record[0])
	if strings.EqualFold(date, "date") {
		return profile.Entry{}, true, nil
	}
	entry := profile.Entry{Date: date, Time: strings.TrimSpace(record[1])}
	if _, err := entry.Day(); err != nil {
		return profile.Entry{}, false, fmt.Errorf("%w: date=%q", err, date)
	}
	energy, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return profile.Entry{}, false, fmt.Errorf("%w: energy=%q", profile.ErrInvalidEntry, record[2])
	}
	entry.Energy = energy
	return entry, false, nil
}
