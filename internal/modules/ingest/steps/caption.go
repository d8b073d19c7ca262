package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/llm"
	"github.com/yungbote/notebook-backend/internal/platform/cache"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type CaptionDeps struct {
	Log     *logger.Logger
	Gateway llm.Gateway
	Cache   cache.Cache
	// Cache key prefix, usually CACHE_KEY_PREFIX.
	Prefix string
}

type CaptionImagesInput struct {
	SourceID uuid.UUID
	Pages    []domain.PageImage
}

type CaptionImagesOutput struct {
	// CaptionsByPath is keyed by the asset's static-relative path. Failed
	// captions are present with an empty string.
	CaptionsByPath map[string]string
	FailedImages   []string
	CacheHits      int
}

// CaptionImages captions every embedded image, conditioned on the page it
// sits on. Captions are cached by image byte hash; only misses reach the
// gateway. A failed caption stays empty, the image is still indexed.
func CaptionImages(ctx context.Context, deps CaptionDeps, in CaptionImagesInput) (CaptionImagesOutput, error) {
	out := CaptionImagesOutput{CaptionsByPath: map[string]string{}}
	if deps.Log == nil || deps.Gateway == nil {
		return out, fmt.Errorf("caption: missing deps")
	}
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}

	type pending struct {
		path string
		key  string
	}
	var tasks []llm.Task
	var waiting []pending

	for _, page := range in.Pages {
		for _, asset := range page.Images {
			if asset.StaticPath == "" || len(asset.Bytes) == 0 {
				continue
			}
			key := cache.ImageCaptionKey(deps.Prefix, cache.SHA256Hex(asset.Bytes))
			if raw, ok := deps.Cache.Get(ctx, key); ok {
				out.CaptionsByPath[asset.StaticPath] = string(raw)
				out.CacheHits++
				continue
			}
			tasks = append(tasks, llm.CaptionImageTask(llm.CaptionInput{
				Image:    asset.Bytes,
				ImageExt: asset.Ext,
				PagePNG:  page.PNG,
			}))
			waiting = append(waiting, pending{path: asset.StaticPath, key: key})
		}
	}

	if len(tasks) > 0 {
		deps.Log.Info("Submitting caption tasks",
			"source_id", in.SourceID.String(),
			"tasks", len(tasks),
			"cache_hits", out.CacheHits,
		)
		results := deps.Gateway.Batch(ctx, tasks)
		if err := ctx.Err(); err != nil {
			return out, err
		}

		for i, res := range results {
			p := waiting[i]
			if res.Err != nil {
				deps.Log.Warn("Image caption failed",
					"source_id", in.SourceID.String(),
					"image", p.path,
					"error", res.Err.Error(),
				)
				out.CaptionsByPath[p.path] = ""
				out.FailedImages = append(out.FailedImages, p.path)
				continue
			}
			caption := res.CaptionText()
			out.CaptionsByPath[p.path] = caption
			if caption != "" {
				deps.Cache.Set(ctx, p.key, []byte(caption))
			}
		}
	}

	return out, nil
}
