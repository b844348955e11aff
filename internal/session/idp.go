package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dErrors "concierge/pkg/domain-errors"
)

// HTTPCredentialVerifier validates external identity provider credentials by
// calling the provider's verification endpoint.
type HTTPCredentialVerifier struct {
	endpoint string
	client   *http.Client
}

func NewHTTPCredentialVerifier(endpoint string, timeout time.Duration) *HTTPCredentialVerifier {
	return &HTTPCredentialVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

type credentialResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (v *HTTPCredentialVerifier) Verify(ctx context.Context, credential string) (*ExternalIdentity, error) {
	body, err := json.Marshal(credentialRequest{Credential: credential})
	if err != nil {
		return nil, fmt.Errorf("marshal credential request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build credential request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential rejected by identity provider")
	default:
		return nil, dErrors.New(dErrors.CodeUnavailable, "identity provider error")
	}

	var parsed credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed identity provider response")
	}
	if parsed.Email == "" {
		return nil, dErrors.New(dErrors.CodeUnavailable, "identity provider returned no email")
	}

	return &ExternalIdentity{Email: parsed.Email, Name: parsed.Name}, nil
}
