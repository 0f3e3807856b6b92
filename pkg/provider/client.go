package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/carelytic/platform/pkg/common/config"
)

// Client talks to an OpenAI-compatible interpretation provider. Two calls
// matter for ingestion: a transient file upload and a response generation
// that references the uploaded file.
type Client struct {
	apiKey          string
	baseURL         string
	modelName       string
	maxOutputTokens int
	httpClient      *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:          cfg.ProviderAPIKey,
		baseURL:         strings.TrimRight(cfg.ProviderBaseURL, "/"),
		modelName:       cfg.ProviderModelName,
		maxOutputTokens: cfg.ProviderMaxTokens,
		httpClient:      &http.Client{},
	}
}

// Result carries the provider's textual output plus response metadata
// persisted alongside the analysis.
type Result struct {
	OutputText   string
	Model        string
	OutputTokens int
}

func (c *Client) UploadFile(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := c.ensureAPIKey(); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write file data: %w", err)
	}
	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", body)
	if err != nil {
		return "", fmt.Errorf("create file upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider file upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", c.decodeAPIError(resp)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode file upload response: %w", err)
	}
	if payload.ID == "" {
		return "", errors.New("provider returned no file id")
	}
	return payload.ID, nil
}

func (c *Client) Interpret(ctx context.Context, systemPrompt, userPrompt, fileID string) (Result, error) {
	if err := c.ensureAPIKey(); err != nil {
		return Result{}, err
	}

	payload := map[string]interface{}{
		"model": c.modelName,
		"input": []map[string]interface{}{
			{
				"role": "system",
				"content": []map[string]string{
					{"type": "input_text", "text": systemPrompt},
				},
			},
			{
				"role": "user",
				"content": []map[string]string{
					{"type": "input_text", "text": userPrompt},
					{"type": "input_file", "file_id": fileID},
				},
			},
		},
		"max_output_tokens": c.maxOutputTokens,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return Result{}, fmt.Errorf("encode interpretation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", buf)
	if err != nil {
		return Result{}, fmt.Errorf("create interpretation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("provider interpretation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{}, c.decodeAPIError(resp)
	}

	var response struct {
		Model  string `json:"model"`
		Output []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return Result{}, fmt.Errorf("decode interpretation response: %w", err)
	}

	var sb strings.Builder
	for _, item := range response.Output {
		for _, content := range item.Content {
			if content.Type == "output_text" {
				sb.WriteString(content.Text)
			}
		}
	}

	return Result{
		OutputText:   strings.TrimSpace(sb.String()),
		Model:        response.Model,
		OutputTokens: response.Usage.OutputTokens,
	}, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.ensureAPIKey(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/files/"+fileID, nil)
	if err != nil {
		return fmt.Errorf("create file delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider file delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeAPIError(resp)
	}
	return nil
}

func (c *Client) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("provider api error: status %d type %s message %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}
	return fmt.Errorf("provider api error: status %d body %s", resp.StatusCode, string(body))
}

func (c *Client) ensureAPIKey() error {
	if strings.TrimSpace(c.apiKey) == "" {
		return errors.New("provider api key is not configured")
	}
	return nil
}
