package config

import (
	"time"

	"github.com/ByLCY/inkpost/fonts"
	"github.com/ByLCY/inkpost/layout"
)

const (
	quoteSystem = `You are a motivational AI which helps to see the good in things, people and the world.`

	quoteInstruction = `Write a famous {variant} quote from a well-known person. The quote can be motivational, inspirational, or thought-provoking.
The quote should be less than 100 characters. The main goal is to inspire and motivate the reader.
Do not repeat any of these quotes: {past_texts}

Format instructions: {format_instructions}`

	factSystem = `You are a curious AI which shares surprising, true and verifiable facts.`

	factInstruction = `Tell a short, surprising fact about {variant}.
The fact should be less than 120 characters and must be true.
Do not repeat any of these facts: {past_texts}

Format instructions: {format_instructions}`

	hashtagSystem = `You are a social media assistant who writes concise, relevant hashtags.`

	hashtagInstruction = `Suggest up to five hashtags for an Instagram post showing this text: {text}

Format instructions: {format_instructions}`
)

// Default returns the configuration used when a field is not set in the file.
func Default() *Config {
	return &Config{
		OutputDir: "data",
		Renderer:  "raster",
		Parallel:  2,
		Canvas: CanvasConfig{
			Width:      1080,
			Height:     1080,
			Margin:     0.1,
			Background: "(255, 255, 255)",
			TextColor:  "(0, 0, 0)",
		},
		Fonts: FontsConfig{
			Primary:   layout.FontResource{Name: "Primary", Src: "embed:" + fonts.Default, Size: 48},
			Secondary: layout.FontResource{Name: "Secondary", Src: "embed:goitalic", Size: 36, Style: "italic"},
		},
		LLM: LLMConfig{
			Model:        "gpt-3.5-turbo",
			Temperature:  0,
			Timeout:      Duration{15 * time.Second},
			MaxAttempts:  10,
			RetryDelay:   Duration{time.Second},
			LocalBaseURL: "http://localhost:4891/v1",
			LocalModel:   "nous-hermes-llama2-13b.Q4_0.gguf",
		},
		Pipelines: map[string][]string{
			"quote": {"inspirational", "breakup", "love", "life"},
			"fact":  {"animals", "countries", "history", "science"},
		},
		Templates: TemplatesConfig{
			Kinds: map[string]Template{
				"quote": {System: quoteSystem, Instruction: quoteInstruction},
				"fact":  {System: factSystem, Instruction: factInstruction},
			},
			Hashtag: Template{System: hashtagSystem, Instruction: hashtagInstruction},
		},
		Publish: PublishConfig{
			Dir:        "data/outbox",
			GraphURL:   "https://graph.facebook.com/v19.0",
			NtfyServer: "https://ntfy.sh",
		},
	}
}
