package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ByLCY/inkpost/binding"
	"github.com/ByLCY/inkpost/config"
	"github.com/ByLCY/inkpost/llm"
)

// DefaultPipeline is the name of the pipeline combining every kind.
const DefaultPipeline = "__default__"

const (
	pastTextsPattern  = "${output_dir}/${namespace}/past_texts.csv"
	finalImagePattern = "${output_dir}/${namespace}/final.png"
	finalPDFPattern   = "${output_dir}/${namespace}/final.pdf"
)

// Variant is one namespace "<kind>.<variant>".
type Variant struct {
	Kind    llm.Kind
	Name    string
	Variant string
}

// Namespace returns "<kind>.<variant>".
func (v Variant) Namespace() string { return v.Name + "." + v.Variant }

// Variants lists the configured namespaces, kinds sorted by name and variants
// in configured order.
func Variants(cfg *config.Config) ([]Variant, error) {
	kinds := make([]string, 0, len(cfg.Pipelines))
	for k := range cfg.Pipelines {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	var out []Variant
	for _, name := range kinds {
		kind, err := llm.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if kind == llm.KindHashtag {
			return nil, fmt.Errorf("%q is not a content kind", name)
		}
		for _, v := range cfg.Pipelines[name] {
			out = append(out, Variant{Kind: kind, Name: name, Variant: v})
		}
	}
	return out, nil
}

// Register builds one pipeline per kind ("<kind>_pipeline") and the default
// pipeline holding all of them.
func Register(cfg *config.Config, d Deps) (map[string]*Pipeline, error) {
	variants, err := Variants(cfg)
	if err != nil {
		return nil, err
	}
	out := map[string]*Pipeline{}
	all := New()
	for _, v := range variants {
		ns := v.Namespace()
		p := contentPipeline(v.Kind, v.Variant, ns, d).Namespace(ns, PrimaryFont, SecondaryFont)
		name := v.Name + "_pipeline"
		if existing, ok := out[name]; ok {
			out[name] = existing.Add(p)
		} else {
			out[name] = p
		}
		all = all.Add(p)
	}
	out[DefaultPipeline] = all
	return out, nil
}

// BuildCatalog registers fonts, parameters and the per-namespace files.
func BuildCatalog(cfg *config.Config, d Deps) (*Catalog, error) {
	variants, err := Variants(cfg)
	if err != nil {
		return nil, err
	}
	c := NewCatalog()
	c.Register(PrimaryFont, FontDataset{Font: cfg.Fonts.Primary, Typesetter: d.Renderer})
	c.Register(SecondaryFont, FontDataset{Font: cfg.Fonts.Secondary, Typesetter: d.Renderer})
	c.Register(CanvasParams, ParamsDataset{Value: cfg.Canvas})
	c.Register(HashtagParams, ParamsDataset{Value: cfg.Templates.Hashtag})
	for kind, tpl := range cfg.Templates.Kinds {
		c.Register(TemplateParams(kind), ParamsDataset{Value: tpl})
	}

	for _, v := range variants {
		ns := v.Namespace()
		vars := map[string]any{"output_dir": filepath.ToSlash(cfg.OutputDir), "namespace": ns}
		past := filepath.FromSlash(binding.Interpolate(pastTextsPattern, vars))
		c.Register(ns+".past_texts", HistoryDataset{Path: past})
		c.Register(ns+".adjusted_past_texts", HistoryDataset{Path: past})
		img := &ImageDataset{Path: filepath.FromSlash(binding.Interpolate(finalImagePattern, vars)), Title: ns}
		if d.PDF {
			img.PDFPath = filepath.FromSlash(binding.Interpolate(finalPDFPattern, vars))
		}
		c.Register(ns+".final_image", img)
	}
	return c, nil
}
