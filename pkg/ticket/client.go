package ticket

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client sends rendered tickets to a network print server.
type Client struct {
	BaseURL    string
	Username   string
	Password   string
	Path       string
	HTTPClient *http.Client
}

type PrintRequest struct {
	JobName string `json:"job_name"`
	Content string `json:"content"`
	Copies  int    `json:"copies"`
}

type PrintResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	} `json:"data"`
}

func NewClient(baseURL, username, password, path string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		Path:     path,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send posts one print job and returns the server's reply.
func (c *Client) Send(ctx context.Context, jobName, content string, copies int) (*PrintResponse, error) {
	if copies < 1 {
		copies = 1
	}
	requestData := PrintRequest{
		JobName: jobName,
		Content: content,
		Copies:  copies,
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal print job: %w", err)
	}

	url := fmt.Sprintf("%s/%s/print", c.BaseURL, c.Path)
	if c.Path == "" {
		url = c.BaseURL + "/print"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		req.Header.Set("Authorization", "Basic "+auth)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("print server returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var response PrintResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !response.Success {
		return &response, fmt.Errorf("print job rejected: %s", response.Message)
	}

	return &response, nil
}

// Print renders t and sends a single copy.
func (c *Client) Print(ctx context.Context, t Ticket) error {
	_, err := c.Send(ctx, t.Title, t.Render(), 1)
	return err
}
