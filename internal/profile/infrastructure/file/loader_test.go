package file

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	profile "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/domain"
)

const sampleCSV = `date,time,energy
2027-02-28,00:00:00,1.5
2027-02-29,00:00:00,1.25

2027-03-01,00:15:00,2
`

func TestReadCSV(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(sampleCSV))
	if err == nil {
		t.Fatalf("expected invalid date error, got %d entries", len(entries))
	}
	if !errors.Is(err, profile.ErrInvalidEntry) {
		t.Fatalf("expected invalid entry, got %v", err)
	}

	valid := strings.Replace(sampleCSV, "2027-02-29", "2028-02-29", 1)
	entries, err = ReadCSV(strings.NewReader(valid))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].Date != "2027-03-01" || entries[2].Time != "00:15:00" || entries[2].Energy != 2 {
		t.Fatalf("unexpected entry: %+v", entries[2])
	}
}

func TestRedate(t *testing.T) {
	entries := []profile.Entry{
		{Date: "2028-01-15", Time: "00:00:00", Energy: 1},
		{Date: "2028-02-29", Time: "00:00:00", Energy: 1},
		{Date: "2028-03-11", Time: "23:45:00", Energy: 1},
		{Date: "2028-03-12", Time: "00:00:00", Energy: 1},
		{Date: "2028-12-31", Time: "23:45:00", Energy: 1},
	}
	moved := Redate(entries, 2021)
	want := []string{"2022-01-15", "2022-03-11", "2021-03-12", "2021-12-31"}
	if len(moved) != len(want) {
		t.Fatalf("expected leap day to be dropped, got %+v", moved)
	}
	for i, date := range want {
		if moved[i].Date != date {
			t.Fatalf("entry %d: got=%s want=%s", i, moved[i].Date, date)
		}
	}
	if moved[1].Time != "23:45:00" {
		t.Fatalf("time slot not kept: %+v", moved[1])
	}

	leap := Redate(entries[1:2], 2023)
	if len(leap) != 1 || leap[0].Date != "2024-02-29" {
		t.Fatalf("expected leap day kept in 2024, got %+v", leap)
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "date")
	_ = f.SetCellValue("Sheet1", "B1", "time")
	_ = f.SetCellValue("Sheet1", "C1", "energy")
	_ = f.SetCellValue("Sheet1", "A2", "2020-01-01")
	_ = f.SetCellValue("Sheet1", "B2", "00:00:00")
	_ = f.SetCellValue("Sheet1", "C2", 0.75)
	path := filepath.Join(t.TempDir(), "profile.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}

	entries, err := Load(path, 2021)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "2022-01-01" || entries[0].Energy != 0.75 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}
