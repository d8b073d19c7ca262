package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/platform/envutil"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/openai"
)

// TaskKind selects the model, prompt, and response schema of a gateway task.
type TaskKind string

const (
	TaskOCRPage          TaskKind = "ocr_page"
	TaskCaptionImage     TaskKind = "caption_image"
	TaskCorrectStructure TaskKind = "correct_structure"
	TaskRerank           TaskKind = "rerank"
)

// CaptionInput is one caption task. PagePNG gives the model the page the
// image sits on; Surrounding carries nearby text when the caller has it.
// Both are optional.
type CaptionInput struct {
	Image       []byte
	ImageExt    string
	PagePNG     []byte
	Surrounding string
}

// SectionRef is one header in the flat skeleton sent for structure
// correction. Index is the header's global order id.
type SectionRef struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// SectionParent is the corrected parent assignment for one header.
// A nil ParentIndex marks a top-level header.
type SectionParent struct {
	Index       int
	ParentIndex *int
}

// RerankInput is one rerank task over a numbered document list.
type RerankInput struct {
	Question  string
	Documents []string
}

// Task is one unit of remote work. Exactly one payload field matching Kind
// is consulted.
type Task struct {
	Kind     TaskKind
	PagePNG  []byte
	Caption  CaptionInput
	Sections []SectionRef
	Rerank   RerankInput
}

func OCRPageTask(pagePNG []byte) Task        { return Task{Kind: TaskOCRPage, PagePNG: pagePNG} }
func CaptionImageTask(in CaptionInput) Task  { return Task{Kind: TaskCaptionImage, Caption: in} }
func CorrectStructureTask(s []SectionRef) Task {
	return Task{Kind: TaskCorrectStructure, Sections: s}
}
func RerankTask(in RerankInput) Task { return Task{Kind: TaskRerank, Rerank: in} }

// TaskResult is the outcome of one batched task. Index mirrors the task's
// position in the submitted slice.
type TaskResult struct {
	Index int
	Value any
	Err   error
}

// Segments returns the OCR value of a TaskOCRPage result.
func (r TaskResult) Segments() []domain.Segment {
	v, _ := r.Value.([]domain.Segment)
	return v
}

// CaptionText returns the caption value of a TaskCaptionImage result.
func (r TaskResult) CaptionText() string {
	v, _ := r.Value.(string)
	return v
}

// Gateway is the single doorway to the remote model services. Every call
// holds one global permit, so OCR, captioning, structure correction, rerank,
// and embedding never exceed the configured in-flight bound between them.
// Transport retries live in the openai client; the gateway retries responses
// that fail schema validation.
type Gateway interface {
	OCRPage(ctx context.Context, pagePNG []byte) ([]domain.Segment, error)
	CaptionImage(ctx context.Context, in CaptionInput) (string, error)
	CorrectStructure(ctx context.Context, sections []SectionRef) ([]SectionParent, error)
	Rerank(ctx context.Context, in RerankInput) ([]int, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)

	// Batch runs tasks concurrently under the permit and returns results in
	// input order. Per-task failures land in TaskResult.Err; the batch itself
	// never fails.
	Batch(ctx context.Context, tasks []Task) []TaskResult
}

// Extra attempts after a response fails validation.
const schemaRetryLimit = 2

type gateway struct {
	log         *logger.Logger
	ai          openai.Client
	sem         *semaphore.Weighted
	taskTimeout time.Duration
}

// NewGateway reads GATEWAY_MAX_IN_FLIGHT (default 3) and
// GATEWAY_TASK_TIMEOUT_SECONDS (default 120).
func NewGateway(log *logger.Logger, ai openai.Client) (Gateway, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	maxInFlight := envutil.Int("GATEWAY_MAX_IN_FLIGHT", 3)
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	timeout := envutil.Seconds("GATEWAY_TASK_TIMEOUT_SECONDS", 120*time.Second)

	log.Info("LLM gateway ready", "max_in_flight", maxInFlight, "task_timeout", timeout.String())
	return &gateway{
		log:         log.With("service", "LLMGateway"),
		ai:          ai,
		sem:         semaphore.NewWeighted(int64(maxInFlight)),
		taskTimeout: timeout,
	}, nil
}

// withPermit runs fn under one global permit with the per-task timeout.
func (g *gateway) withPermit(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)

	tctx, cancel := context.WithTimeout(ctx, g.taskTimeout)
	defer cancel()
	return fn(tctx)
}

// validationError marks a response that the model delivered but that failed
// the task's schema validation. Only these are retried by the gateway.
type validationError struct {
	cause error
}

func (e *validationError) Error() string {
	return "response validation: " + e.cause.Error()
}

func (e *validationError) Unwrap() error { return e.cause }

// validated runs call under a permit, retrying validation failures up to
// schemaRetryLimit extra times. Transport errors return immediately; the
// openai client has already retried those.
func (g *gateway) validated(ctx context.Context, kind TaskKind, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= 1+schemaRetryLimit; attempt++ {
		err := g.withPermit(ctx, call)
		if err == nil {
			return nil
		}
		var vErr *validationError
		if !errors.As(err, &vErr) {
			return fmt.Errorf("%s: %w", kind, err)
		}
		lastErr = err
		if attempt <= schemaRetryLimit {
			g.log.Warn("Task response failed validation, retrying",
				"task", string(kind),
				"attempt", attempt,
				"error", err.Error(),
			)
		}
	}
	return fmt.Errorf("%s: %w", kind, lastErr)
}

func (g *gateway) OCRPage(ctx context.Context, pagePNG []byte) ([]domain.Segment, error) {
	if len(pagePNG) == 0 {
		return nil, fmt.Errorf("%s: empty page image", TaskOCRPage)
	}
	images := []openai.ImageInput{{ImageURL: dataURL("png", pagePNG)}}

	var segments []domain.Segment
	err := g.validated(ctx, TaskOCRPage, func(c context.Context) error {
		obj, err := g.ai.GenerateJSONWithImages(c, ocrSystemPrompt, ocrUserPrompt, images, schemaNamePageOCR, ocrSchema())
		if err != nil {
			return err
		}
		parsed, perr := parseOCRResponse(obj)
		if perr != nil {
			return &validationError{cause: perr}
		}
		segments = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (g *gateway) CaptionImage(ctx context.Context, in CaptionInput) (string, error) {
	if len(in.Image) == 0 {
		return "", fmt.Errorf("%s: empty image", TaskCaptionImage)
	}
	images := []openai.ImageInput{{ImageURL: dataURL(in.ImageExt, in.Image)}}
	if len(in.PagePNG) > 0 {
		images = append(images, openai.ImageInput{ImageURL: dataURL("png", in.PagePNG)})
	}
	user := captionUserPrompt(in.Surrounding)

	var caption string
	err := g.validated(ctx, TaskCaptionImage, func(c context.Context) error {
		obj, err := g.ai.GenerateJSONWithImages(c, captionSystemPrompt, user, images, schemaNameImageCaption, captionSchema())
		if err != nil {
			return err
		}
		parsed, perr := parseCaptionResponse(obj)
		if perr != nil {
			return &validationError{cause: perr}
		}
		caption = parsed
		return nil
	})
	if err != nil {
		return "", err
	}
	return caption, nil
}

func (g *gateway) CorrectStructure(ctx context.Context, sections []SectionRef) ([]SectionParent, error) {
	if len(sections) == 0 {
		return []SectionParent{}, nil
	}
	user, err := structureUserPrompt(sections)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TaskCorrectStructure, err)
	}

	var parents []SectionParent
	err = g.validated(ctx, TaskCorrectStructure, func(c context.Context) error {
		obj, err := g.ai.GenerateJSON(c, structureSystemPrompt, user, schemaNameStructure, structureSchema())
		if err != nil {
			return err
		}
		parsed, perr := parseStructureResponse(obj)
		if perr != nil {
			return &validationError{cause: perr}
		}
		parents = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parents, nil
}

func (g *gateway) Rerank(ctx context.Context, in RerankInput) ([]int, error) {
	if len(in.Documents) == 0 {
		return []int{}, nil
	}
	user := rerankUserPrompt(in.Question, in.Documents)

	var indices []int
	err := g.validated(ctx, TaskRerank, func(c context.Context) error {
		obj, err := g.ai.GenerateJSON(c, rerankSystemPrompt, user, schemaNameRerank, rerankSchema())
		if err != nil {
			return err
		}
		parsed, perr := parseRerankResponse(obj, len(in.Documents))
		if perr != nil {
			return &validationError{cause: perr}
		}
		indices = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return indices, nil
}

func (g *gateway) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	var vectors [][]float32
	err := g.withPermit(ctx, func(c context.Context) error {
		out, err := g.ai.Embed(c, inputs)
		if err != nil {
			return err
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vectors, nil
}

func (g *gateway) Batch(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	grp, gctx := errgroup.WithContext(ctx)
	for i := range tasks {
		i := i
		grp.Go(func() error {
			results[i] = g.runTask(gctx, i, tasks[i])
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

func (g *gateway) runTask(ctx context.Context, index int, t Task) TaskResult {
	res := TaskResult{Index: index}
	switch t.Kind {
	case TaskOCRPage:
		res.Value, res.Err = g.OCRPage(ctx, t.PagePNG)
	case TaskCaptionImage:
		res.Value, res.Err = g.CaptionImage(ctx, t.Caption)
	case TaskCorrectStructure:
		res.Value, res.Err = g.CorrectStructure(ctx, t.Sections)
	case TaskRerank:
		res.Value, res.Err = g.Rerank(ctx, t.Rerank)
	default:
		res.Err = fmt.Errorf("unknown task kind %q", t.Kind)
	}
	return res
}

// dataURL builds the inline data URL form the responses API accepts.
func dataURL(ext string, data []byte) string {
	mime := "image/png"
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")) {
	case "jpg", "jpeg":
		mime = "image/jpeg"
	case "webp":
		mime = "image/webp"
	case "tif", "tiff":
		mime = "image/tiff"
	case "gif":
		mime = "image/gif"
	case "bmp":
		mime = "image/bmp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
