package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Credentials are read from the environment, optionally seeded from a .env
// file. They are never part of the config file.
type Credentials struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	InstaUserID      string
	InstaAccessToken string
	NtfyToken        string
}

// LoadCredentials loads envFile (if non-empty) without overriding variables
// already set, then reads the credentials. A missing default ".env" is not an error.
func LoadCredentials(envFile string) (Credentials, error) {
	file := envFile
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}
	return Credentials{
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_API_BASE_URL"),
		InstaUserID:      os.Getenv("INSTA_USER_ID"),
		InstaAccessToken: os.Getenv("INSTA_ACCESS_TOKEN"),
		NtfyToken:        os.Getenv("NTFY_TOKEN"),
	}, nil
}
