// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docflat/internal/blocktree"
	"github.com/pdiddy/docflat/internal/httputil"
	"github.com/pdiddy/docflat/pkg/types"
)

const uploadPath = "/marker/upload"

// serverResponse is the body returned by the marker server.
type serverResponse struct {
	Success bool   `json:"success"`
	Format  string `json:"format"`
	Error   string `json:"error"`
	// Output is the rendered document: a JSON string holding the block tree,
	// or the tree itself.
	Output json.RawMessage `json:"output"`
}

// ServerExtractor uploads PDFs to a running marker server.
type ServerExtractor struct {
	// APIKey, when set, is sent in the X-Api-Key header.
	APIKey string

	endpoint string
	client   *http.Client
}

// NewServerExtractor creates an extractor for the marker server at baseURL.
// A nil client means http.DefaultClient; marker can take minutes per
// document, so callers setting a timeout should keep it generous.
func NewServerExtractor(baseURL string, client *http.Client) (*ServerExtractor, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("marker server URL is required for the server backend")
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + uploadPath)
	if err != nil {
		return nil, fmt.Errorf("parsing marker server URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ServerExtractor{endpoint: u.String(), client: client}, nil
}

// Extract uploads pdfPath and decodes the returned block tree. workDir is unused.
func (s *ServerExtractor) Extract(ctx context.Context, pdfPath, _ string) (*types.Document, error) {
	body, contentType, err := uploadBody(pdfPath)
	if err != nil {
		return nil, types.IOError(pdfPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.ExtractionError(pdfPath, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("X-Api-Key", s.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return nil, types.ExtractionError(pdfPath, fmt.Errorf("HTTP request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.ExtractionError(pdfPath, fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.ExtractionError(pdfPath, fmt.Errorf("HTTP %d from %s", resp.StatusCode, s.endpoint))
	}

	var sr serverResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, types.ExtractionError(pdfPath, fmt.Errorf("decoding server response: %w", err))
	}
	if !sr.Success {
		return nil, types.ExtractionError(pdfPath, fmt.Errorf("marker server: %s", sr.Error))
	}

	tree := []byte(sr.Output)
	var encoded string
	if err := json.Unmarshal(sr.Output, &encoded); err == nil {
		tree = []byte(encoded)
	}
	doc, err := blocktree.Parse(tree)
	if err != nil {
		if fe, ok := err.(*types.FileError); ok {
			fe.Path = pdfPath
		}
		return nil, err
	}
	return doc, nil
}

// uploadBody builds the multipart form marker's upload endpoint expects.
func uploadBody(pdfPath string) ([]byte, string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("output_format", "json"); err != nil {
		return nil, "", err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(pdfPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading PDF %s: %w", pdfPath, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
