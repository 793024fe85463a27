package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultPinataEndpoint is Pinata's pinning API.
const DefaultPinataEndpoint = "https://api.pinata.cloud/pinning/pinFileToIPFS"

// Pinata uploads blobs with a JWT.
type Pinata struct {
	endpoint string
	jwt      string
	client   *http.Client
	logger   *zap.Logger
}

// NewPinata builds an uploader. An empty endpoint selects the public API.
func NewPinata(endpoint, jwt string, logger *zap.Logger) (*Pinata, error) {
	if jwt == "" {
		return nil, fmt.Errorf("pinata jwt is required")
	}
	if endpoint == "" {
		endpoint = DefaultPinataEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pinata{
		endpoint: endpoint,
		jwt:      jwt,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}, nil
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Upload validates data and pins it. The returned ref is the IPFS hash.
func (p *Pinata) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if _, err := Validate(data); err != nil {
		return "", err
	}

	body, contentType, err := pinForm(filename, data)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build pin request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin file: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read pin response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pin file: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out pinResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode pin response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pin response without IpfsHash")
	}
	p.logger.Info("content pinned", zap.String("filename", filename), zap.String("ref", out.IpfsHash), zap.Int64("size", out.PinSize))
	return out.IpfsHash, nil
}

func pinForm(filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"name":      filename,
		"keyvalues": map[string]string{"app": "CropCircle"},
	})
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("pinataMetadata", string(metadata)); err != nil {
		return nil, "", fmt.Errorf("write metadata: %w", err)
	}
	if err := w.WriteField("pinataOptions", `{"cidVersion":0}`); err != nil {
		return nil, "", fmt.Errorf("write options: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
