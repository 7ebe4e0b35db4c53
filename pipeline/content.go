package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/inkpost/config"
	"github.com/ByLCY/inkpost/history"
	"github.com/ByLCY/inkpost/layout"
	"github.com/ByLCY/inkpost/llm"
	"github.com/ByLCY/inkpost/publish"
	"github.com/ByLCY/inkpost/renderer"
)

// Deps are the services the content nodes call.
type Deps struct {
	Generator *llm.Generator
	Renderer  renderer.Renderer
	Publisher publish.Publisher // nil leaves out post_image
	DebugDir  string            // layout JSON is written here when set
	PDF       bool              // also write final.pdf for canvases that can export it
}

// Text is what goes on the image: the body and an optional attribution.
type Text struct {
	Body      string `json:"body"`
	Secondary string `json:"secondary,omitempty"`
}

// Dataset names shared by every namespace.
const (
	PrimaryFont   = "primary_font"
	SecondaryFont = "secondary_font"
	CanvasParams  = "params:canvas"
	HashtagParams = "params:templates.hashtag"
)

// TemplateParams is the parameter name holding the prompt for kind.
func TemplateParams(kind string) string { return "params:templates." + kind }

// Normalize composes the text to NFC and collapses runs of whitespace into
// single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func toText(out llm.Output) (Text, error) {
	switch v := out.(type) {
	case llm.Quote:
		return Text{Body: v.Text, Secondary: v.Author}, nil
	case llm.Fact:
		return Text{Body: v.Text}, nil
	}
	return Text{}, fmt.Errorf("unexpected model output %T", out)
}

// contentPipeline builds the un-namespaced nodes generating one image.
func contentPipeline(kind llm.Kind, variant, ns string, d Deps) *Pipeline {
	p := New(
		&Node{
			Name:    "create_text_for_image",
			Inputs:  map[string]string{"template": TemplateParams(kind.String()), "past_texts": "past_texts"},
			Outputs: map[string]string{"text": "text_for_image"},
			Func:    createTextForImage(d, kind, variant, ns),
		},
		&Node{
			Name: "create_text_layout",
			Inputs: map[string]string{
				"text":      "text_for_image",
				"primary":   PrimaryFont,
				"secondary": SecondaryFont,
				"canvas":    CanvasParams,
			},
			Outputs: map[string]string{"layout": "text_layout"},
			Func:    createTextLayout(d, ns),
		},
		&Node{
			Name:    "save_past_texts",
			Inputs:  map[string]string{"text": "text_for_image", "past_texts": "past_texts"},
			Outputs: map[string]string{"past_texts": "adjusted_past_texts"},
			Func:    savePastTexts,
		},
		&Node{
			Name:    "create_white_canvas",
			Inputs:  map[string]string{"canvas": CanvasParams},
			Outputs: map[string]string{"canvas": "white_canvas"},
			Func:    createWhiteCanvas(d),
		},
		&Node{
			Name:    "create_final_image",
			Inputs:  map[string]string{"canvas": "white_canvas", "layout": "text_layout", "params": CanvasParams},
			Outputs: map[string]string{"image": "final_image"},
			Func:    createFinalImage,
		},
		&Node{
			Name:    "create_hashtags",
			Inputs:  map[string]string{"text": "text_for_image", "template": HashtagParams},
			Outputs: map[string]string{"hashtags": "hashtags"},
			Func:    createHashtags(d),
		},
	)
	if d.Publisher != nil {
		p = p.Add(New(&Node{
			Name:   "post_image",
			Inputs: map[string]string{"image": "final_image", "hashtags": "hashtags"},
			Func:   postImage(d, ns),
		}))
	}
	return p
}

// input returns in[name] as a T, or an error naming the type it actually has.
func input[T any](in Values, name string) (T, error) {
	v, ok := in[name].(T)
	if !ok {
		return v, fmt.Errorf("input %q has type %T", name, in[name])
	}
	return v, nil
}

func createTextForImage(d Deps, kind llm.Kind, variant, ns string) Func {
	return func(ctx context.Context, in Values) (Values, error) {
		tpl, err := input[config.Template](in, "template")
		if err != nil {
			return nil, err
		}
		past, err := input[*history.Store](in, "past_texts")
		if err != nil {
			return nil, err
		}
		pastJSON, err := json.Marshal(past.Texts())
		if err != nil {
			return nil, err
		}
		out, err := d.Generator.Generate(ctx, kind, tpl.System, tpl.Instruction, map[string]any{
			"kind":       kind.String(),
			"variant":    variant,
			"namespace":  ns,
			"past_texts": string(pastJSON),
		})
		if err != nil {
			return nil, err
		}
		text, err := toText(out)
		if err != nil {
			return nil, err
		}
		return Values{"text": text}, nil
	}
}

func createTextLayout(d Deps, ns string) Func {
	return func(_ context.Context, in Values) (Values, error) {
		text, err := input[Text](in, "text")
		if err != nil {
			return nil, err
		}
		canvas, err := input[config.CanvasConfig](in, "canvas")
		if err != nil {
			return nil, err
		}
		primary, err := input[layout.FontResource](in, "primary")
		if err != nil {
			return nil, err
		}
		secondary, err := input[layout.FontResource](in, "secondary")
		if err != nil {
			return nil, err
		}
		res, err := layout.Compose(layout.Input{
			Body:          Normalize(text.Body),
			Secondary:     Normalize(text.Secondary),
			Primary:       primary,
			SecondaryFont: secondary,
			ImageWidth:    canvas.Width,
			Margin:        canvas.Margin,
		}, d.Renderer)
		if err != nil {
			return nil, err
		}
		if d.DebugDir != "" {
			if err := os.MkdirAll(d.DebugDir, 0o755); err != nil {
				return nil, err
			}
			path := filepath.Join(d.DebugDir, ns+".layout.json")
			if err := layout.WriteDebugJSON(res, layout.Place(canvas.Width, canvas.Height, res), path); err != nil {
				return nil, fmt.Errorf("write layout debug: %w", err)
			}
		}
		return Values{"layout": res}, nil
	}
}

func savePastTexts(_ context.Context, in Values) (Values, error) {
	text, err := input[Text](in, "text")
	if err != nil {
		return nil, err
	}
	store, err := input[*history.Store](in, "past_texts")
	if err != nil {
		return nil, err
	}
	store.Append(history.Entry{Text: text.Body, Author: text.Secondary})
	return Values{"past_texts": store}, nil
}

func createWhiteCanvas(d Deps) Func {
	return func(_ context.Context, in Values) (Values, error) {
		cfg, err := input[config.CanvasConfig](in, "canvas")
		if err != nil {
			return nil, err
		}
		bg, err := renderer.ParseColor(cfg.Background)
		if err != nil {
			return nil, err
		}
		return Values{"canvas": d.Renderer.NewCanvas(cfg.Width, cfg.Height, bg)}, nil
	}
}

func createFinalImage(_ context.Context, in Values) (Values, error) {
	canvas, err := input[renderer.Canvas](in, "canvas")
	if err != nil {
		return nil, err
	}
	cfg, err := input[config.CanvasConfig](in, "params")
	if err != nil {
		return nil, err
	}
	res, err := input[*layout.Result](in, "layout")
	if err != nil {
		return nil, err
	}
	col, err := renderer.ParseColor(cfg.TextColor)
	if err != nil {
		return nil, err
	}
	if _, err := layout.Render(canvas, res, col); err != nil {
		return nil, err
	}
	return Values{"image": canvas}, nil
}

func createHashtags(d Deps) Func {
	return func(ctx context.Context, in Values) (Values, error) {
		text, err := input[Text](in, "text")
		if err != nil {
			return nil, err
		}
		tpl, err := input[config.Template](in, "template")
		if err != nil {
			return nil, err
		}
		out, err := d.Generator.Generate(ctx, llm.KindHashtag, tpl.System, tpl.Instruction, map[string]any{
			"text": text.Body,
		})
		if err != nil {
			return nil, err
		}
		tags, ok := out.(llm.Hashtag)
		if !ok {
			return nil, fmt.Errorf("unexpected model output %T", out)
		}
		return Values{"hashtags": tags.Hashtags}, nil
	}
}

func postImage(d Deps, ns string) Func {
	return func(ctx context.Context, in Values) (Values, error) {
		var img image.Image
		switch v := in["image"].(type) {
		case renderer.Canvas:
			img = v.Image()
		case image.Image:
			img = v
		default:
			return nil, fmt.Errorf("input %q has type %T", "image", in["image"])
		}
		tags, err := input[[]string](in, "hashtags")
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode image: %w", err)
		}
		err = d.Publisher.Publish(ctx, publish.Post{
			Image:     buf.Bytes(),
			Caption:   publish.Caption(tags),
			Namespace: ns,
		})
		return nil, err
	}
}
