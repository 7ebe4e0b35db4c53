// Package publish delivers finished images to their destination.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ByLCY/inkpost/config"
)

// ErrNotConfigured is returned when a publish target lacks settings or credentials.
var ErrNotConfigured = errors.New("publish: target not configured")

// Post is one image ready to publish.
type Post struct {
	Image     []byte // PNG
	Caption   string
	Namespace string
}

// Publisher sends a post somewhere.
type Publisher interface {
	Publish(ctx context.Context, post Post) error
}

// Caption joins hashtags with single spaces.
func Caption(hashtags []string) string {
	return strings.Join(hashtags, " ")
}

// New builds the publisher selected by cfg.Target.
func New(cfg config.PublishConfig, creds config.Credentials) (Publisher, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	switch cfg.Target {
	case "dir":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("%w: publish.dir is empty", ErrNotConfigured)
		}
		return &Dir{Path: cfg.Dir}, nil
	case "ntfy":
		if cfg.NtfyServer == "" || cfg.NtfyTopic == "" {
			return nil, fmt.Errorf("%w: ntfy_server and ntfy_topic are required", ErrNotConfigured)
		}
		return &Ntfy{Server: cfg.NtfyServer, Topic: cfg.NtfyTopic, Token: creds.NtfyToken, Client: client}, nil
	case "instagram":
		if creds.InstaUserID == "" || creds.InstaAccessToken == "" {
			return nil, fmt.Errorf("%w: INSTA_USER_ID and INSTA_ACCESS_TOKEN must be set", ErrNotConfigured)
		}
		if cfg.PublicBaseURL == "" || cfg.Dir == "" {
			return nil, fmt.Errorf("%w: instagram needs publish.dir served at publish.public_base_url", ErrNotConfigured)
		}
		return &Instagram{
			GraphURL:      cfg.GraphURL,
			UserID:        creds.InstaUserID,
			AccessToken:   creds.InstaAccessToken,
			PublicBaseURL: cfg.PublicBaseURL,
			Staging:       &Dir{Path: cfg.Dir},
			Client:        client,
		}, nil
	case "":
		return nil, fmt.Errorf("%w: publish.target is empty", ErrNotConfigured)
	}
	return nil, fmt.Errorf("%w: unknown target %q", ErrNotConfigured, cfg.Target)
}
