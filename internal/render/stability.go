// Package render turns refined text prompts into PNG files via the Stability
// text-to-image API.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Minggyul/AI-Image-Craft/internal/config"
	"github.com/Minggyul/AI-Image-Craft/internal/logger"
)

// ErrNoImageData is returned when the API response carries no image payload.
var ErrNoImageData = errors.New("render: no image data received from Stability API")

// Generation parameters are policy constants, not caller-configurable.
const (
	cfgScale = 7
	imgSize  = 1024
	steps    = 30
	samples  = 1
)

// Client calls the Stability text-to-image endpoint and persists the decoded
// image under the public images directory.
type Client struct {
	cfg        config.StabilityConfig
	dir        string
	publicPath string
	client     *http.Client
}

// NewClient creates a rendering client writing files into images.Dir and
// returning reference paths under images.PublicPath.
func NewClient(cfg config.StabilityConfig, images config.ImagesConfig) *Client {
	return &Client{
		cfg:        cfg,
		dir:        images.Dir,
		publicPath: images.PublicPath,
		client:     &http.Client{},
	}
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type generationRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    int          `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Steps       int          `json:"steps"`
	Samples     int          `json:"samples"`
}

type generationResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

// Render generates one image for the prompt, writes it to a timestamped file
// and returns the reference path clients use to retrieve it.
func (c *Client) Render(ctx context.Context, prompt string) (string, error) {
	logger.L.Info("calling stability API", "prompt", prompt)

	body, err := json.Marshal(generationRequest{
		TextPrompts: []textPrompt{{Text: prompt, Weight: 1}},
		CfgScale:    cfgScale,
		Height:      imgSize,
		Width:       imgSize,
		Steps:       steps,
		Samples:     samples,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", c.cfg.BaseURL, c.cfg.Engine)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stability API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		remote, _ := io.ReadAll(resp.Body)
		logger.L.Error("stability API error response", "status", resp.StatusCode, "body", string(remote))
		return "", fmt.Errorf("stability API error: %d - %s", resp.StatusCode, string(remote))
	}

	var result generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("stability API response decode failed: %w", err)
	}
	if len(result.Artifacts) == 0 || result.Artifacts[0].Base64 == "" {
		return "", ErrNoImageData
	}

	data, err := base64.StdEncoding.DecodeString(result.Artifacts[0].Base64)
	if err != nil {
		return "", fmt.Errorf("stability API image decode failed: %w", err)
	}

	// File names are time-unique under this process's own issuance; no
	// further collision detection.
	filename := fmt.Sprintf("generated_%d.png", time.Now().UnixMilli())
	filePath := filepath.Join(c.dir, filename)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", err
	}
	logger.L.Info("image saved", "path", filePath)

	return path.Join(c.publicPath, filename), nil
}
