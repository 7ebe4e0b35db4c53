package publish

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ByLCY/inkpost/logx"
)

// Ntfy uploads the image as an attachment to an ntfy topic.
type Ntfy struct {
	Server string
	Topic  string
	Token  string
	Client *http.Client
}

func (n *Ntfy) Publish(ctx context.Context, post Post) error {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(n.Server, "/"), n.Topic)

	// the image is the body, metadata goes in headers
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(post.Image))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Filename", ImageName(post.Namespace))
	req.Header.Set("Title", post.Namespace)
	if post.Caption != "" {
		req.Header.Set("Message", post.Caption)
	}
	req.Header.Set("Tags", "frame_with_picture")
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	logx.L().Info("ntfy notification sent", "namespace", post.Namespace, "topic", n.Topic)
	return nil
}
