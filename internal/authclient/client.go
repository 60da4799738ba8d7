package authclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"xcreator/pkg/domain"
)

// Client calls the backend's auth endpoints over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a backend error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs an auth client for the backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Login exchanges credentials for an access token and the user payload.
func (c *Client) Login(email, password string) (domain.User, string, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := c.doJSON(http.MethodPost, "/api/login", "", payload, &resp); err != nil {
		return domain.User{}, "", err
	}
	return resp.User, resp.AccessToken, nil
}

// Register creates a new account. The dashboard itself never calls this, but
// the backend serves it and tooling does.
func (c *Client) Register(username, email, password string) (domain.User, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var user domain.User
	if err := c.doJSON(http.MethodPost, "/api/register", "", payload, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUser fetches a user by id; the backend enforces that the token's
// identity matches.
func (c *Client) GetUser(token, userID string) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(http.MethodGet, "/api/users/"+userID, token, nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *Client) doJSON(method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	User        domain.User `json:"user"`
}
