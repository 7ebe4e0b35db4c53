package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ByLCY/inkpost/logx"
)

// Instagram publishes through the Graph API content publishing flow: the image
// is staged where PublicBaseURL serves it, a media container is created from
// that URL and the container is then published.
type Instagram struct {
	GraphURL      string
	UserID        string
	AccessToken   string
	PublicBaseURL string
	Staging       *Dir
	Client        *http.Client
}

type graphResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *Instagram) Publish(ctx context.Context, post Post) error {
	if err := g.Staging.Publish(ctx, post); err != nil {
		return err
	}
	imageURL := strings.TrimRight(g.PublicBaseURL, "/") + "/" + url.PathEscape(ImageName(post.Namespace))

	container, err := g.call(ctx, "media", url.Values{
		"image_url": {imageURL},
		"caption":   {post.Caption},
	})
	if err != nil {
		return fmt.Errorf("create media container: %w", err)
	}
	media, err := g.call(ctx, "media_publish", url.Values{"creation_id": {container}})
	if err != nil {
		return fmt.Errorf("publish media container %s: %w", container, err)
	}
	logx.L().Info("instagram post published", "namespace", post.Namespace, "media_id", media)
	return nil
}

func (g *Instagram) call(ctx context.Context, edge string, form url.Values) (string, error) {
	form.Set("access_token", g.AccessToken)
	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(g.GraphURL, "/"), g.UserID, edge)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var out graphResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("graph api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out.Error != nil {
		return "", fmt.Errorf("graph api error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || out.ID == "" {
		return "", fmt.Errorf("graph api returned status %d without id", resp.StatusCode)
	}
	return out.ID, nil
}
