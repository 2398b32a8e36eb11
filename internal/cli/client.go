package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Response types (дублируются из api, CLI не импортирует internal/api) ---

// StatusResponse — состояние поллера из админ-интерфейса.
type StatusResponse struct {
	State        string `json:"state"`
	Provider     string `json:"provider,omitempty"`
	Leader       bool   `json:"leader"`
	Tables       int    `json:"tables"`
	InitialDelay string `json:"initial_delay"`
	Delay        string `json:"delay"`
	Uptime       string `json:"uptime"`
}

// StartRequest — запрос запуска поллинга.
type StartRequest struct {
	Provider string `json:"provider,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client — HTTP-клиент админ-интерфейса поллера.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status возвращает состояние поллера.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	err := c.doData(http.MethodGet, "/status", nil, &status)
	return &status, err
}

// Start запускает поллинг. Пустой provider означает провайдера
// из конфигурации процесса поллера.
func (c *Client) Start(provider string) (*StatusResponse, error) {
	var status StatusResponse
	err := c.doData(http.MethodPost, "/start", StartRequest{Provider: provider}, &status)
	return &status, err
}

// Stop запрашивает остановку поллинга.
func (c *Client) Stop() (*StatusResponse, error) {
	var status StatusResponse
	err := c.doData(http.MethodPost, "/stop", nil, &status)
	return &status, err
}

// Healthy проверяет /healthz.
func (c *Client) Healthy() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: HTTP %d", resp.StatusCode)
	}
	return nil
}

// --- HTTP helpers ---

func (c *Client) doData(method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
