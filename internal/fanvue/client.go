package fanvue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/eliasbr/fanvoice/internal/config"
)

// Client talks to the Fanvue messaging API: uploading media and sending chat
// messages that reference it.
type Client struct {
	client *http.Client
	cfg    config.FanvueConfig
}

func NewClient(cfg config.FanvueConfig) *Client {
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// SendVoiceReply uploads the audio and sends it as a message in the chat.
func (c *Client) SendVoiceReply(ctx context.Context, chatID string, audio []byte) error {
	mediaID, err := c.UploadMedia(ctx, audio)
	if err != nil {
		return fmt.Errorf("upload media: %w", err)
	}
	if err := c.SendMessage(ctx, chatID, "", []string{mediaID}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

type uploadResponse struct {
	UUID string `json:"uuid"`
}

// UploadMedia posts the audio as a multipart upload and returns the media
// identifier Fanvue assigns to it.
func (c *Client) UploadMedia(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "reply.mp3")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/media", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, string(body))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if out.UUID == "" {
		return "", fmt.Errorf("upload response missing media uuid")
	}
	return out.UUID, nil
}

type sendMessageRequest struct {
	Text       string   `json:"text,omitempty"`
	MediaUUIDs []string `json:"mediaUuids,omitempty"`
}

// SendMessage posts a message into the chat, optionally attaching uploaded
// media by identifier.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, mediaUUIDs []string) error {
	payload, err := json.Marshal(sendMessageRequest{Text: text, MediaUUIDs: mediaUUIDs})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/chats/%s/messages", c.cfg.BaseURL, chatID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
