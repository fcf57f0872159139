package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const pinataUploadURL = "https://api.pinata.cloud/pinning/pinFileToIPFS"

// PinataStore pins uploads through the Pinata API and resolves references
// through a configured gateway.
type PinataStore struct {
	jwt        string
	gatewayURL string
	httpClient *http.Client
	log        *zap.Logger
}

func NewPinataStore(jwt, gatewayURL string, log *zap.Logger) *PinataStore {
	return &PinataStore{
		jwt:        jwt,
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (s *PinataStore) Upload(ctx context.Context, data []byte, meta Meta) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", meta.Name)
	if err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart: %w", err)
	}

	metaJSON, _ := json.Marshal(map[string]any{"name": meta.Name})
	_ = w.WriteField("pinataMetadata", string(metaJSON))

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pinataUploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.jwt)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("pinata upload: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var pr pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("decode pinata response: %w", err)
	}
	if pr.IpfsHash == "" {
		return "", fmt.Errorf("pinata returned empty hash")
	}

	s.log.Debug("pinned file",
		zap.String("name", meta.Name),
		zap.String("ref", pr.IpfsHash),
		zap.Int64("size", pr.PinSize),
	)
	return pr.IpfsHash, nil
}

func (s *PinataStore) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.gatewayURL, ref)
}
