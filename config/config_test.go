package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
output_dir: "out"
renderer: canvas
parallel: 4
canvas:
  width: 800
  height: 600
  margin: 0.2
  background: "#102030"
fonts:
  primary:
    name: Body
    src: embed:gobold
    size: 40
llm:
  model: gpt-4o-mini
  timeout: 30s
  max_attempts: 3
pipelines:
  quote: [love]
publish:
  target: dir
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "canvas", cfg.Renderer)
	assert.Equal(t, 4, cfg.Parallel)
	assert.Equal(t, 800, cfg.Canvas.Width)
	assert.Equal(t, 600, cfg.Canvas.Height)
	assert.InDelta(t, 0.2, cfg.Canvas.Margin, 1e-9)
	assert.Equal(t, "#102030", cfg.Canvas.Background)
	assert.Equal(t, "(0, 0, 0)", cfg.Canvas.TextColor, "unset fields keep defaults")
	assert.Equal(t, "embed:gobold", cfg.Fonts.Primary.Src)
	assert.Equal(t, "embed:goitalic", cfg.Fonts.Secondary.Src)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout.Duration)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, []string{"love"}, cfg.Pipelines["quote"])
	assert.Len(t, cfg.Pipelines, 1, "configured pipelines replace the defaults")
	assert.Equal(t, path, cfg.Path())
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
output_dir = "toml-out"
renderer = "raster"

[canvas]
width = 640
height = 640

[llm]
retry_delay = "250ms"

[pipelines]
fact = ["science"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "toml-out", cfg.OutputDir)
	assert.Equal(t, 640, cfg.Canvas.Width)
	assert.Equal(t, 250*time.Millisecond, cfg.LLM.RetryDelay.Duration)
	assert.Equal(t, []string{"science"}, cfg.Pipelines["fact"])
	assert.Len(t, cfg.Pipelines, 1, "configured pipelines replace the defaults")
	assert.InDelta(t, 0.1, cfg.Canvas.Margin, 1e-9)
}

func TestLoadInstructionFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "quote.txt", "Write a {variant} quote. {format_instructions}")
	path := writeFile(t, dir, "config.yaml", `
templates:
  kinds:
    quote:
      system: "be kind"
      instruction_file: quote.txt
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	quote := cfg.Templates.Kinds["quote"]
	assert.Equal(t, "Write a {variant} quote. {format_instructions}", quote.Instruction)
	assert.Equal(t, filepath.Join(dir, "quote.txt"), quote.InstructionFile)
	assert.Contains(t, cfg.Watched(), path)
	assert.Contains(t, cfg.Watched(), filepath.Join(dir, "quote.txt"))
	assert.Equal(t, Default().Pipelines, cfg.Pipelines, "pipelines left unset keep the defaults")
}

func TestLoadExtraFonts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
renderer: canvas
fonts:
  extra:
    brand: fonts/brand.ttf
    abs: /opt/fonts/abs.ttf
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"brand": filepath.Join(dir, "fonts", "brand.ttf"),
		"abs":   "/opt/fonts/abs.ttf",
	}, cfg.Fonts.Extra)

	cfg.Renderer = "raster"
	assert.Error(t, cfg.Validate(), "raster cannot use extra fonts")
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "output_dir: ~/inkpost\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "inkpost"), cfg.OutputDir)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "config.json", "{}"},
		{"bad yaml", "bad.yaml", "canvas: [\n"},
		{"bad duration", "dur.yaml", "llm:\n  timeout: soon\n"},
		{"invalid margin", "margin.yaml", "canvas:\n  margin: 0.5\n"},
		{"invalid renderer", "renderer.yaml", "renderer: svg\n"},
		{"invalid color", "color.yaml", "canvas:\n  background: blue\n"},
		{"empty variants", "variants.yaml", "pipelines:\n  quote: []\n"},
		{"unknown kind template", "kind.yaml", "pipelines:\n  poem: [haiku]\n"},
		{"invalid target", "target.yaml", "publish:\n  target: fax\n"},
		{"missing template file", "tpl.yaml", "templates:\n  hashtag:\n    instruction_file: nope.txt\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", "OPENAI_API_KEY=from-file\nINSTA_USER_ID=42\n")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("INSTA_USER_ID", "")
	os.Unsetenv("INSTA_USER_ID")
	t.Setenv("NTFY_TOKEN", "from-env")

	creds, err := LoadCredentials(env)
	require.NoError(t, err)
	assert.Equal(t, "from-file", creds.OpenAIKey)
	assert.Equal(t, "42", creds.InstaUserID)
	assert.Equal(t, "from-env", creds.NtfyToken)
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
