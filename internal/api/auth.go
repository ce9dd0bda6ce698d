package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DeviceAuthRequest identifies the client and project when initiating the
// browser sign-in flow.
type DeviceAuthRequest struct {
	ClientName    string `json:"client_name"`
	ClientType    string `json:"client_type"`
	ClientVersion string `json:"client_version"`
	DeviceName    string `json:"device_name"`
	ProjectPath   string `json:"project_path"`
	GitRemote     string `json:"git_remote,omitempty"`
}

// DeviceAuthInit is the device-auth/init response.
type DeviceAuthInit struct {
	DeviceCode      string `json:"device_code"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
	VerificationURI string `json:"verification_uri_complete"`
}

// DeviceAuthPoll is the device-auth/poll response. Status is one of
// pending, authorized, denied, expired.
type DeviceAuthPoll struct {
	Status     string `json:"status"`
	APIKey     string `json:"api_key"`
	Email      string `json:"email"`
	ActionName string `json:"action_name"`
}

// SlowDownError asks the poller to back off to a new interval, per the
// device-auth protocol.
type SlowDownError struct {
	Interval int
}

func (e *SlowDownError) Error() string {
	return fmt.Sprintf("polling too fast, back off to %ds", e.Interval)
}

// RegisterProjectRequest registers the current project against an existing
// account (the connect fast path).
type RegisterProjectRequest struct {
	ClientType  string `json:"client_type"`
	ClientName  string `json:"client_name"`
	DeviceName  string `json:"device_name"`
	ProjectPath string `json:"project_path"`
	GitRemote   string `json:"git_remote,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Description string `json:"description,omitempty"`
}

// RegisterProjectResult reports whether a new action was created.
type RegisterProjectResult struct {
	ActionName string `json:"action_name"`
	Created    bool   `json:"created"`
	Message    string `json:"message"`
}

// InitDeviceAuth starts the sign-in flow. Uses the anon key only; no
// bearer token is required yet.
func (c *Client) InitDeviceAuth(ctx context.Context, req DeviceAuthRequest) (DeviceAuthInit, error) {
	var out DeviceAuthInit
	if err := c.postAnon(ctx, "device-auth/init", req, &out); err != nil {
		return DeviceAuthInit{}, err
	}
	if out.DeviceCode == "" {
		return DeviceAuthInit{}, fmt.Errorf("device-auth init returned no device code")
	}
	return out, nil
}

// PollDeviceAuth checks authorization status once. Returns *SlowDownError
// when the backend asks for a longer polling interval.
func (c *Client) PollDeviceAuth(ctx context.Context, deviceCode string) (DeviceAuthPoll, error) {
	var out DeviceAuthPoll
	body := map[string]string{"device_code": deviceCode}
	err := c.postAnon(ctx, "device-auth/poll", body, &out)
	if err != nil {
		return DeviceAuthPoll{}, err
	}
	return out, nil
}

// RegisterProject registers the current project using the stored key.
func (c *Client) RegisterProject(ctx context.Context, req RegisterProjectRequest) (RegisterProjectResult, error) {
	if c.apiKey == "" {
		return RegisterProjectResult{}, ErrMissingCredentials
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return RegisterProjectResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/register-project", bytes.NewReader(payload))
	if err != nil {
		return RegisterProjectResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		httpReq.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return RegisterProjectResult{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return RegisterProjectResult{}, ErrAuthInvalid
	}

	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		RegisterProjectResult
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return RegisterProjectResult{}, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("registration failed with status %d", resp.StatusCode)
		}
		return RegisterProjectResult{}, fmt.Errorf("%s", msg)
	}
	return out.RegisterProjectResult, nil
}

// postAnon posts JSON with only the anon key attached. Used by the
// device-auth endpoints, which run before any API key exists.
func (c *Client) postAnon(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error    string `json:"error"`
			Interval int    `json:"interval"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error == "slow_down" {
			interval := apiErr.Interval
			if interval <= 0 {
				interval = 10
			}
			return &SlowDownError{Interval: interval}
		}
		if apiErr.Error != "" {
			return fmt.Errorf("backend error: %s", apiErr.Error)
		}
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}
