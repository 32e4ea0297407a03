package timeseries

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoad_WithNews(t *testing.T) {
	path := writeCSV(t, "study_1.csv",
		"date,price,news\n2026-01-01,100.5,\n2026-01-02,101.25,Target raised to 110\n")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Asset != "study_1" {
		t.Errorf("expected asset study_1, got %s", s.Asset)
	}
	if len(s.Prices) != 2 || s.Prices[0] != 100.5 || s.Prices[1] != 101.25 {
		t.Errorf("unexpected prices: %v", s.Prices)
	}
	if s.News[0] != "" || s.News[1] != "Target raised to 110" {
		t.Errorf("unexpected news: %v", s.News)
	}
}

func TestLoad_WithoutNewsColumn(t *testing.T) {
	path := writeCSV(t, "demo.csv", "date,price\n2026-01-01,50\n2026-01-02,55\n")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.News) != 2 || s.News[0] != "" || s.News[1] != "" {
		t.Errorf("expected empty news entries, got %v", s.News)
	}
}

func TestLoad_MissingPriceColumn(t *testing.T) {
	path := writeCSV(t, "bad.csv", "date,value\n2026-01-01,50\n")
	if _, err := Load(path); !errors.Is(err, ErrNoPriceColumn) {
		t.Errorf("expected ErrNoPriceColumn, got %v", err)
	}
}

func TestLoad_BadPrice(t *testing.T) {
	path := writeCSV(t, "bad.csv", "date,price\n2026-01-01,abc\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable price")
	}
}

func TestLoad_Empty(t *testing.T) {
	path := writeCSV(t, "empty.csv", "date,price\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for file without data rows")
	}
}
