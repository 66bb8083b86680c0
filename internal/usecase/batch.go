package usecase

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/forPelevin/clipforge/internal/faults"
)

// RenderBatch renders jobs one after another. A failed clip never stops the
// batch; cancellation does, and the remaining clips report the context
// error.
func (r Renderer) RenderBatch(ctx context.Context, jobs []Job) []ClipResult {
	out := make([]ClipResult, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			out = append(out, ClipResult{Index: job.Index, OutputKey: job.OutputKey, Err: fmt.Errorf("clip not started: %w", err)})
			continue
		}
		r.d.Log.Info("rendering clip", "clip", job.Index, "start", job.Start, "end", job.End)
		res := r.RenderClip(ctx, job)
		if res.Err != nil {
			r.d.Log.Error("clip failed", "clip", job.Index, "kind", faults.Kind(res.Err), "error", res.Err)
		} else {
			r.d.Log.Info("clip published", "clip", job.Index, "key", res.OutputKey, "dubbed", res.Dubbed)
		}
		out = append(out, res)
	}
	return out
}

// OutputKey names clip i next to the source object, or under prefix when
// one is given.
func OutputKey(sourceKey, prefix string, index int) string {
	name := fmt.Sprintf("clip_%d.mp4", index)
	if p := strings.Trim(strings.TrimSpace(prefix), "/"); p != "" {
		return p + "/" + name
	}
	dir := path.Dir(strings.TrimSpace(sourceKey))
	if dir == "." || dir == "/" {
		return name
	}
	return dir + "/" + name
}
