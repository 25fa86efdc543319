package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/audio"
	"github.com/stemwave/api/internal/config"
	"github.com/stemwave/api/internal/model"
)

// Separator separates a decoded signal into named stems.
type Separator interface {
	Separate(ctx context.Context, buf *audio.Buffer, signalType model.SignalType, stems int) (map[string]*audio.Buffer, error)
}

// Prober derives signal metadata from raw uploaded bytes.
type Prober interface {
	Probe(ctx context.Context, data []byte, filename string) (*model.SignalMetadata, error)
}

// AudioClient implements Separator and Prober against the separation
// microservice.
type AudioClient struct {
	httpClient *http.Client
	baseURL    string
}

// SeparateRequest is the wire request for /separate. Signal carries a
// 16-bit PCM WAV file.
type SeparateRequest struct {
	Signal     []byte `json:"signal"`
	SignalType string `json:"signal_type"`
	Stems      int    `json:"stems"`
}

// SeparateResponse maps stem name to a WAV-encoded signal.
type SeparateResponse struct {
	Stems map[string][]byte `json:"stems"`
}

// ProbeRequest is the wire request for /probe.
type ProbeRequest struct {
	Data     []byte `json:"data"`
	Filename string `json:"filename"`
}

// ProbeResponse is the wire response from /probe.
type ProbeResponse struct {
	Extension   string  `json:"extension"`
	SampleRate  int     `json:"sample_rate"`
	Duration    float64 `json:"duration"`
	Channels    int     `json:"channels"`
	SampleWidth int     `json:"sample_width"`
}

// NewAudioClient creates a new separation service client.
func NewAudioClient(cfg *config.SeparatorConfig) *AudioClient {
	return &AudioClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Separate sends the decoded signal to the separation endpoint and decodes
// the returned stems.
func (c *AudioClient) Separate(ctx context.Context, buf *audio.Buffer, signalType model.SignalType, stems int) (map[string]*audio.Buffer, error) {
	req := &SeparateRequest{
		Signal:     audio.Encode(buf),
		SignalType: string(signalType),
		Stems:      stems,
	}

	var resp SeparateResponse
	if err := c.post(ctx, "/separate", req, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]*audio.Buffer, len(resp.Stems))
	for name, wav := range resp.Stems {
		decoded, err := audio.Decode(wav)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stem %q: %w", name, err)
		}
		out[name] = decoded
	}
	return out, nil
}

// Probe asks the service for signal metadata.
func (c *AudioClient) Probe(ctx context.Context, data []byte, filename string) (*model.SignalMetadata, error) {
	req := &ProbeRequest{Data: data, Filename: filename}

	var resp ProbeResponse
	if err := c.post(ctx, "/probe", req, &resp); err != nil {
		return nil, err
	}

	return &model.SignalMetadata{
		Extension:   resp.Extension,
		SampleRate:  resp.SampleRate,
		Duration:    resp.Duration,
		Channels:    resp.Channels,
		SampleWidth: resp.SampleWidth,
		Filename:    filename,
	}, nil
}

// HealthCheck checks if the separation service is available.
func (c *AudioClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("separation service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// post sends a POST request with JSON body and parses the response
func (c *AudioClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusInsufficientStorage || resp.StatusCode == http.StatusTooManyRequests {
		return apperr.Wrap(apperr.KindResourceExhausted, "separation service out of resources",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("separation service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *AudioClient) IsConfigured() bool {
	return c.baseURL != ""
}

// LocalProber probes WAV uploads in process, without the separation service.
// Used as the fallback when the service is not configured.
type LocalProber struct{}

func (LocalProber) Probe(ctx context.Context, data []byte, filename string) (*model.SignalMetadata, error) {
	if ext := extensionOf(filename); ext != "" && ext != "wav" {
		return nil, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unsupported extension %q", ext))
	}

	res, err := audio.Probe(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "unreadable signal file", err)
	}

	return &model.SignalMetadata{
		Extension:   res.Extension,
		SampleRate:  res.SampleRate,
		Duration:    res.Duration,
		Channels:    res.Channels,
		SampleWidth: res.SampleWidth,
		Filename:    filename,
	}, nil
}

func extensionOf(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}
