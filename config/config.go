package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/inkpost/layout"
	"github.com/ByLCY/inkpost/renderer"
)

// Config represents the application configuration
type Config struct {
	OutputDir string              `yaml:"output_dir" toml:"output_dir"`
	FontDir   string              `yaml:"font_dir" toml:"font_dir"`
	Renderer  string              `yaml:"renderer" toml:"renderer"`
	Parallel  int                 `yaml:"parallel" toml:"parallel"`
	Canvas    CanvasConfig        `yaml:"canvas" toml:"canvas"`
	Fonts     FontsConfig         `yaml:"fonts" toml:"fonts"`
	LLM       LLMConfig           `yaml:"llm" toml:"llm"`
	Pipelines map[string][]string `yaml:"pipelines" toml:"pipelines"`
	Templates TemplatesConfig     `yaml:"templates" toml:"templates"`
	Publish   PublishConfig       `yaml:"publish" toml:"publish"`

	// path the config was loaded from, empty for Default()
	path string
}

type CanvasConfig struct {
	Width      int     `yaml:"width" toml:"width"`
	Height     int     `yaml:"height" toml:"height"`
	Margin     float64 `yaml:"margin" toml:"margin"`
	Background string  `yaml:"background" toml:"background"`
	TextColor  string  `yaml:"text_color" toml:"text_color"`
}

type FontsConfig struct {
	Primary   layout.FontResource `yaml:"primary" toml:"primary"`
	Secondary layout.FontResource `yaml:"secondary" toml:"secondary"`
	// Extra registers font files under a name usable as "builtin:<name>".
	// Only the canvas renderer reads them.
	Extra map[string]string `yaml:"extra" toml:"extra"`
}

type LLMConfig struct {
	Model        string   `yaml:"model" toml:"model"`
	Temperature  float32  `yaml:"temperature" toml:"temperature"`
	Timeout      Duration `yaml:"timeout" toml:"timeout"`
	MaxAttempts  int      `yaml:"max_attempts" toml:"max_attempts"`
	RetryDelay   Duration `yaml:"retry_delay" toml:"retry_delay"`
	LocalBaseURL string   `yaml:"local_base_url" toml:"local_base_url"`
	LocalModel   string   `yaml:"local_model" toml:"local_model"`
}

// TemplatesConfig holds the prompts per content kind ("quote", "fact") plus the
// hashtag prompt shared by every pipeline.
type TemplatesConfig struct {
	Kinds   map[string]Template `yaml:"kinds" toml:"kinds"`
	Hashtag Template            `yaml:"hashtag" toml:"hashtag"`
}

// Template is a system message and an instruction template. InstructionFile,
// when set, replaces Instruction with the file contents at load time.
type Template struct {
	System          string `yaml:"system" toml:"system"`
	Instruction     string `yaml:"instruction" toml:"instruction"`
	InstructionFile string `yaml:"instruction_file" toml:"instruction_file"`
}

type PublishConfig struct {
	Target        string `yaml:"target" toml:"target"`
	Dir           string `yaml:"dir" toml:"dir"`
	PublicBaseURL string `yaml:"public_base_url" toml:"public_base_url"`
	GraphURL      string `yaml:"graph_url" toml:"graph_url"`
	NtfyServer    string `yaml:"ntfy_server" toml:"ntfy_server"`
	NtfyTopic     string `yaml:"ntfy_topic" toml:"ntfy_topic"`
}

// Duration decodes "15s"-style strings from both YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads and parses the configuration file. The format is chosen by
// extension: .yaml/.yml or .toml. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	// pipelines replaces the default registry instead of merging into it
	defaults := cfg.Pipelines
	cfg.Pipelines = nil
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Pipelines == nil {
		cfg.Pipelines = defaults
	}
	cfg.path = path

	if err := cfg.resolve(filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// resolve expands "~" in paths and reads instruction files relative to dir.
func (c *Config) resolve(dir string) error {
	var err error
	for _, p := range []*string{&c.OutputDir, &c.FontDir, &c.Publish.Dir} {
		if *p, err = homedir.Expand(*p); err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
	}
	for name, p := range c.Fonts.Extra {
		path, err := homedir.Expand(p)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", p, err)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		c.Fonts.Extra[name] = path
	}
	load := func(t *Template) error {
		if t.InstructionFile == "" {
			return nil
		}
		path, err := homedir.Expand(t.InstructionFile)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", t.InstructionFile, err)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		t.InstructionFile = path
		t.Instruction = string(data)
		return nil
	}
	for kind, t := range c.Templates.Kinds {
		if err := load(&t); err != nil {
			return err
		}
		c.Templates.Kinds[kind] = t
	}
	return load(&c.Templates.Hashtag)
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	switch c.Renderer {
	case "raster", "canvas":
	default:
		return fmt.Errorf("renderer must be raster or canvas, got %q", c.Renderer)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1")
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.Margin < 0 || c.Canvas.Margin >= 0.5 {
		return fmt.Errorf("canvas.margin must be in [0, 0.5), got %g", c.Canvas.Margin)
	}
	if _, err := renderer.ParseColor(c.Canvas.Background); err != nil {
		return fmt.Errorf("canvas.background: %w", err)
	}
	if _, err := renderer.ParseColor(c.Canvas.TextColor); err != nil {
		return fmt.Errorf("canvas.text_color: %w", err)
	}
	for name, f := range map[string]layout.FontResource{"primary": c.Fonts.Primary, "secondary": c.Fonts.Secondary} {
		if f.Src == "" {
			return fmt.Errorf("fonts.%s.src is required", name)
		}
		if f.Size <= 0 {
			return fmt.Errorf("fonts.%s.size must be positive", name)
		}
	}
	if len(c.Fonts.Extra) > 0 && c.Renderer != "canvas" {
		return fmt.Errorf("fonts.extra requires the canvas renderer")
	}
	for name, path := range c.Fonts.Extra {
		if name == "" || path == "" {
			return fmt.Errorf("fonts.extra entries need a name and a path")
		}
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1")
	}
	if c.LLM.Timeout.Duration <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if len(c.Pipelines) == 0 {
		return fmt.Errorf("pipelines must list at least one kind")
	}
	for kind, variants := range c.Pipelines {
		if len(variants) == 0 {
			return fmt.Errorf("pipelines.%s has no variants", kind)
		}
		t, ok := c.Templates.Kinds[kind]
		if !ok || t.Instruction == "" {
			return fmt.Errorf("templates.kinds.%s.instruction is required", kind)
		}
	}
	if c.Templates.Hashtag.Instruction == "" {
		return fmt.Errorf("templates.hashtag.instruction is required")
	}
	switch c.Publish.Target {
	case "", "dir", "ntfy", "instagram":
	default:
		return fmt.Errorf("publish.target %q is not supported", c.Publish.Target)
	}
	return nil
}

// Watched returns the files whose change should trigger a re-run.
func (c *Config) Watched() []string {
	var out []string
	if c.path != "" {
		out = append(out, c.path)
	}
	for _, t := range c.Templates.Kinds {
		if t.InstructionFile != "" {
			out = append(out, t.InstructionFile)
		}
	}
	if c.Templates.Hashtag.InstructionFile != "" {
		out = append(out, c.Templates.Hashtag.InstructionFile)
	}
	return out
}
