package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type ConvertDeps struct {
	Log *logger.Logger
}

type ConvertInput struct {
	// Path of the uploaded file on disk. PDFs pass through untouched.
	Path string
}

type ConvertOutput struct {
	PDFPath   string
	Converted bool
}

// ConvertToPDF normalizes an upload to PDF. DOCX goes through a headless
// office conversion into the same directory, so `/x/y/{id}.docx` yields
// `/x/y/{id}.pdf`. The binary comes from SOFFICE_BIN (default "libreoffice").
func ConvertToPDF(ctx context.Context, deps ConvertDeps, in ConvertInput) (ConvertOutput, error) {
	out := ConvertOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("convert: missing deps")
	}
	if strings.TrimSpace(in.Path) == "" {
		return out, fmt.Errorf("convert: missing path")
	}

	ext := strings.ToLower(filepath.Ext(in.Path))
	switch ext {
	case ".pdf":
		out.PDFPath = in.Path
		return out, nil
	case ".docx":
	default:
		return out, fmt.Errorf("convert: unsupported extension %q", ext)
	}

	if _, err := os.Stat(in.Path); err != nil {
		return out, fmt.Errorf("convert: stat %s: %w", in.Path, err)
	}

	outDir := filepath.Dir(in.Path)
	bin := envutil.Str("SOFFICE_BIN", "libreoffice")

	cmd := exec.CommandContext(ctx, bin, "--headless", "--convert-to", "pdf", "--outdir", outDir, in.Path)
	raw, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("convert: %s failed: %w: %s", bin, err, strings.TrimSpace(string(raw)))
	}

	base := strings.TrimSuffix(filepath.Base(in.Path), ext)
	pdfPath := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return out, fmt.Errorf("convert: %s produced no output at %s: %w", bin, pdfPath, err)
	}

	deps.Log.Info("Converted DOCX to PDF", "input", in.Path, "output", pdfPath)
	out.PDFPath = pdfPath
	out.Converted = true
	return out, nil
}
