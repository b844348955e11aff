// Package provider is the HTTP client for the national civil registry
// (RENIEC-style document lookup API).
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"concierge/internal/verify"
	dErrors "concierge/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	tracer  trace.Tracer
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("concierge/verify/provider"),
	}
}

// registryResponse mirrors the registry's wire format. Names come split the
// way the registry stores them.
type registryResponse struct {
	DocumentNumber string `json:"dni"`
	FirstNames     string `json:"nombres"`
	PaternalName   string `json:"apellido_paterno"`
	MaternalName   string `json:"apellido_materno"`
	BirthDate      string `json:"fecha_nacimiento"`
}

// Lookup fetches the registry record for a document number. Unknown documents
// map to CodeNotFound; anything that smells like an outage maps to
// CodeUnavailable so callers know a retry is worthwhile.
func (c *Client) Lookup(ctx context.Context, documentNumber string) (*verify.Record, error) {
	ctx, span := c.tracer.Start(ctx, "registry.lookup",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("registry.document_length", fmt.Sprintf("%d", len(documentNumber)))),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/dni/"+documentNumber, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "registry unreachable")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "civil registry unreachable")
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found in registry")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Our credential problem, not the caller's. Present it as an outage.
		span.SetStatus(codes.Error, "registry rejected credentials")
		return nil, dErrors.New(dErrors.CodeUnavailable, "civil registry rejected credentials")
	default:
		span.SetStatus(codes.Error, "registry error")
		return nil, dErrors.New(dErrors.CodeUnavailable, "civil registry error")
	}

	var parsed registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed registry response")
	}

	record, err := parsed.toRecord()
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r registryResponse) toRecord() (*verify.Record, error) {
	birth, err := time.Parse(dateLayout, r.BirthDate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registry returned an unparseable birth date")
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{r.FirstNames, r.PaternalName, r.MaternalName} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return &verify.Record{
		FullName:  strings.Join(parts, " "),
		BirthDate: birth,
	}, nil
}
