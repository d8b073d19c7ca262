package steps

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/staticdir"
)

// Rasterization DPI. 144 is 2x the 72 DPI page unit, enough for OCR without
// ballooning payload sizes.
const rasterDPI = 144

type ExtractDeps struct {
	Log    *logger.Logger
	Static *staticdir.Store
}

type ExtractInput struct {
	SourceID uuid.UUID
	PDFPath  string
}

type ExtractOutput struct {
	Pages         []domain.PageImage
	ImagesKept    int
	ImagesSkipped int
}

// imageWindow is the accepted embedded-image size envelope.
type imageWindow struct {
	minW, maxW, minH, maxH, minArea int
}

func windowFromEnv() imageWindow {
	return imageWindow{
		minW:    envutil.Int("MIN_IMAGE_WIDTH", 100),
		maxW:    envutil.Int("MAX_IMAGE_WIDTH", 5000),
		minH:    envutil.Int("MIN_IMAGE_HEIGHT", 100),
		maxH:    envutil.Int("MAX_IMAGE_HEIGHT", 5000),
		minArea: envutil.Int("MIN_IMAGE_AREA", 500),
	}
}

func (w imageWindow) accepts(width, height int) bool {
	if width < w.minW || width > w.maxW {
		return false
	}
	if height < w.minH || height > w.maxH {
		return false
	}
	return width*height >= w.minArea
}

// ExtractPages rasterizes every page of the PDF to PNG and pulls out the
// embedded images, writing accepted ones under the source's static
// directory as image_p{page}_{idx}.{ext}. Pages come back in page order
// with their images in extraction order.
func ExtractPages(ctx context.Context, deps ExtractDeps, in ExtractInput) (ExtractOutput, error) {
	out := ExtractOutput{}
	if deps.Log == nil || deps.Static == nil {
		return out, fmt.Errorf("extract: missing deps")
	}
	if in.SourceID == uuid.Nil {
		return out, fmt.Errorf("extract: missing source_id")
	}

	data, err := os.ReadFile(in.PDFPath)
	if err != nil {
		return out, fmt.Errorf("extract: read %s: %w", in.PDFPath, err)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return out, fmt.Errorf("extract: open pdf: %w", err)
	}
	defer doc.Close()

	// A page-less PDF is legal input: the source ends up indexed with zero
	// documents.
	total := doc.NumPage()
	pages := make([]domain.PageImage, 0, total)
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		img, err := doc.ImageDPI(i, rasterDPI)
		if err != nil {
			return out, fmt.Errorf("extract: render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return out, fmt.Errorf("extract: encode page %d: %w", i+1, err)
		}
		pages = append(pages, domain.PageImage{Page: i + 1, PNG: buf.Bytes()})
	}

	assetsByPage, kept, skipped := extractEmbeddedImages(deps, in.SourceID, data)
	for pi := range pages {
		pages[pi].Images = assetsByPage[pages[pi].Page]
	}
	out.Pages = pages
	out.ImagesKept = kept
	out.ImagesSkipped = skipped

	deps.Log.Info("Extracted source",
		"source_id", in.SourceID.String(),
		"pages", len(pages),
		"images_kept", kept,
		"images_skipped", skipped,
	)
	return out, nil
}

// extractEmbeddedImages walks the PDF's raster resources. A failure of the
// whole enumeration degrades to zero images; a failure of one asset skips
// that asset. Per-page indices are 1-based and count skipped assets too, so
// names stay stable when the size window changes.
func extractEmbeddedImages(deps ExtractDeps, sourceID uuid.UUID, data []byte) (map[int][]domain.ImageAsset, int, int) {
	byPage := map[int][]domain.ImageAsset{}

	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTIMAGES
	pageMaps, err := pdfapi.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		deps.Log.Warn("Embedded image enumeration failed, continuing without images",
			"source_id", sourceID.String(),
			"error", err.Error(),
		)
		return byPage, 0, 0
	}

	writer, err := deps.Static.ImageWriter(sourceID)
	if err != nil {
		deps.Log.Warn("Static image dir unavailable, continuing without images",
			"source_id", sourceID.String(),
			"error", err.Error(),
		)
		return byPage, 0, 0
	}

	window := windowFromEnv()
	kept, skipped := 0, 0
	counters := map[int]int{}

	for _, pageMap := range pageMaps {
		objNrs := make([]int, 0, len(pageMap))
		for objNr := range pageMap {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			img := pageMap[objNr]
			page := img.PageNr
			if page < 1 {
				page = 1
			}
			counters[page]++
			idx := counters[page]

			asset, ok := buildAsset(deps, writer, window, img, page, idx)
			if !ok {
				skipped++
				continue
			}
			kept++
			byPage[page] = append(byPage[page], asset)
		}
	}
	return byPage, kept, skipped
}

func buildAsset(deps ExtractDeps, writer *staticdir.ImageWriter, window imageWindow, img model.Image, page, idx int) (domain.ImageAsset, bool) {
	var asset domain.ImageAsset
	if img.Reader == nil {
		return asset, false
	}
	raw, err := io.ReadAll(img.Reader)
	if err != nil || len(raw) == 0 {
		deps.Log.Warn("Embedded image unreadable", "page", page, "idx", idx)
		return asset, false
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		deps.Log.Warn("Embedded image decode failed", "page", page, "idx", idx, "error", err.Error())
		return asset, false
	}
	if !window.accepts(cfg.Width, cfg.Height) {
		return asset, false
	}

	ext := strings.ToLower(strings.TrimSpace(img.FileType))
	if ext == "" {
		ext = "png"
	}
	rel, err := writer.WriteAsset(page, idx, ext, raw)
	if err != nil {
		deps.Log.Warn("Embedded image write failed", "page", page, "idx", idx, "error", err.Error())
		return asset, false
	}

	return domain.ImageAsset{
		Page:       page,
		Index:      idx,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Ext:        ext,
		StaticPath: rel,
		Bytes:      raw,
	}, true
}
