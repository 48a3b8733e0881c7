package converter

import (
	"context"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/pkg/blocks"
)

// serialize renders the final blocks. Images that cannot be rendered or
// persisted are dropped and reported as warnings; serialization itself
// never fails.
func (cv *conversion) serialize(ctx context.Context, bs []blocks.Block) string {
	return blocks.RenderAll(bs, cv.renderImage(ctx))
}

func (cv *conversion) renderImage(ctx context.Context) blocks.ImageFunc {
	return func(img *blocks.Image) string {
		if !cv.opts.PersistMedia {
			out := blocks.LinkedImage(img)
			if out == "" {
				cv.dropImage(img, "unsupported image URL")
			}
			return out
		}

		if cv.persister == nil {
			cv.dropImage(img, "media persistence is not configured")
			return ""
		}

		att, err := cv.persister.Sideload(ctx, img.Src, cv.opts.PostID, img.Alt)
		if err != nil {
			logger.Warn("image sideload failed",
				"url", img.Src,
				"post_id", cv.opts.PostID,
				"error", err)
			cv.dropImage(img, err.Error())
			return ""
		}

		out := blocks.PersistedImage(img, att.ID, att.HTML)
		if out == "" {
			cv.dropImage(img, "persisted image has no markup")
			return ""
		}
		cv.result.Stats.ImagesPersisted++
		return out
	}
}

func (cv *conversion) dropImage(img *blocks.Image, reason string) {
	cv.result.Stats.ImagesDropped++
	cv.result.AddWarning("serialize", "image dropped: "+reason, img.Src)
}
