package etl

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const rawExport = `Spanish,Bulgarian
variado/a,разнообразен
"perro, gato","куче, котка"
hablar,говоря/глагол
uno,dos,tres
bonito,-а
`

func TestTransform(t *testing.T) {
	var out bytes.Buffer
	tr := NewTransformer(nil)
	stats, err := tr.Transform(strings.NewReader(rawExport), &out)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	want := "Spanish,Bulgarian\n" +
		"variado,разнообразен\n" +
		"variada,разнообразен\n" +
		"perro,куче\n" +
		"gato,котка\n" +
		"hablar,говоря\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out.String(), want)
	}

	wantStats := Stats{Rows: 4, Skipped: 1, Emitted: 5, Filtered: 1}
	if stats != wantStats {
		t.Errorf("stats = %+v, want %+v", stats, wantStats)
	}
}

func TestTransformCustomLabels(t *testing.T) {
	var out bytes.Buffer
	tr := NewTransformer(NewNormalizer())
	tr.Labels = Labels{Source: "es", Target: "bg"}
	if _, err := tr.Transform(strings.NewReader("a,b\n"), &out); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out.String() != "es,bg\n" {
		t.Fatalf("expected header only, got %q", out.String())
	}
}

func TestTransformFileMissing(t *testing.T) {
	var out bytes.Buffer
	_, err := NewTransformer(nil).TransformFile(filepath.Join(t.TempDir(), "missing.csv"), &out)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", out.String())
	}
}

func TestTransformFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	if err := os.WriteFile(path, []byte(rawExport), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	var out bytes.Buffer
	stats, err := NewTransformer(nil).TransformFile(path, &out)
	if err != nil {
		t.Fatalf("TransformFile failed: %v", err)
	}
	if stats.Emitted != 5 {
		t.Errorf("expected 5 pairs, got %d", stats.Emitted)
	}
}

func TestReadRowsNormalizesToNFC(t *testing.T) {
	// "año" with a combining tilde.
	input := "h1,h2\nan\u0303o,година\n"
	rows, skipped, err := ReadRows(strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if skipped != 0 || len(rows) != 1 {
		t.Fatalf("unexpected rows %v (skipped %d)", rows, skipped)
	}
	if rows[0].Source != "a\u00f1o" {
		t.Errorf("expected NFC source %q, got %q", "a\u00f1o", rows[0].Source)
	}
}

func TestReadRowsEmptyInput(t *testing.T) {
	rows, skipped, err := ReadRows(strings.NewReader(""), nil)
	if err != nil || len(rows) != 0 || skipped != 0 {
		t.Fatalf("ReadRows(\"\") = %v, %d, %v", rows, skipped, err)
	}
}
