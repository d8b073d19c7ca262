package steps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertToPDFPassesThroughPDFs(t *testing.T) {
	out, err := ConvertToPDF(context.Background(), ConvertDeps{Log: newTestLogger(t)}, ConvertInput{
		Path: "/uploads/abc/file.PDF",
	})
	if err != nil {
		t.Fatalf("ConvertToPDF: %v", err)
	}
	if out.PDFPath != "/uploads/abc/file.PDF" || out.Converted {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestConvertToPDFRejectsUnknownExtension(t *testing.T) {
	_, err := ConvertToPDF(context.Background(), ConvertDeps{Log: newTestLogger(t)}, ConvertInput{
		Path: "/uploads/abc/file.txt",
	})
	if err == nil {
		t.Fatal("expected unsupported extension error")
	}
}

func TestConvertToPDFMissingDOCX(t *testing.T) {
	_, err := ConvertToPDF(context.Background(), ConvertDeps{Log: newTestLogger(t)}, ConvertInput{
		Path: filepath.Join(t.TempDir(), "missing.docx"),
	})
	if err == nil {
		t.Fatal("expected stat error for missing file")
	}
}

func TestConvertToPDFRunsOfficeBinary(t *testing.T) {
	dir := t.TempDir()
	docx := filepath.Join(dir, "report.docx")
	if err := os.WriteFile(docx, []byte("not really a docx"), 0o644); err != nil {
		t.Fatalf("write docx: %v", err)
	}

	argsFile := filepath.Join(dir, "args.txt")
	script := filepath.Join(t.TempDir(), "soffice")
	body := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"touch " + filepath.Join(dir, "report.pdf") + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	t.Setenv("SOFFICE_BIN", script)

	out, err := ConvertToPDF(context.Background(), ConvertDeps{Log: newTestLogger(t)}, ConvertInput{Path: docx})
	if err != nil {
		t.Fatalf("ConvertToPDF: %v", err)
	}
	if !out.Converted {
		t.Fatal("expected Converted to be set")
	}
	if out.PDFPath != filepath.Join(dir, "report.pdf") {
		t.Fatalf("pdf path %q", out.PDFPath)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	args := strings.TrimSpace(string(raw))
	for _, want := range []string{"--headless", "--convert-to pdf", "--outdir " + dir, docx} {
		if !strings.Contains(args, want) {
			t.Fatalf("office args %q missing %q", args, want)
		}
	}
}

func TestConvertToPDFBinaryFailure(t *testing.T) {
	dir := t.TempDir()
	docx := filepath.Join(dir, "report.docx")
	if err := os.WriteFile(docx, []byte("x"), 0o644); err != nil {
		t.Fatalf("write docx: %v", err)
	}

	script := filepath.Join(t.TempDir(), "soffice")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho conversion broke >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	t.Setenv("SOFFICE_BIN", script)

	_, err := ConvertToPDF(context.Background(), ConvertDeps{Log: newTestLogger(t)}, ConvertInput{Path: docx})
	if err == nil {
		t.Fatal("expected conversion failure")
	}
	if !strings.Contains(err.Error(), "conversion broke") {
		t.Fatalf("error should carry the tool output, got %v", err)
	}
}
