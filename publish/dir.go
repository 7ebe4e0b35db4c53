package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ByLCY/inkpost/logx"
)

// Dir writes <namespace>.png and <namespace>.txt (the caption) into Path.
type Dir struct {
	Path string
}

// ImageName is the file name used for a namespace's image.
func ImageName(namespace string) string { return namespace + ".png" }

func (d *Dir) Publish(ctx context.Context, post Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if post.Namespace == "" {
		return fmt.Errorf("publish: post has no namespace")
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create outbox %s: %w", d.Path, err)
	}
	img := filepath.Join(d.Path, ImageName(post.Namespace))
	if err := os.WriteFile(img, post.Image, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	txt := filepath.Join(d.Path, post.Namespace+".txt")
	if err := os.WriteFile(txt, []byte(post.Caption+"\n"), 0o644); err != nil {
		return fmt.Errorf("write caption: %w", err)
	}
	logx.L().Info("post written", "namespace", post.Namespace, "path", img)
	return nil
}
