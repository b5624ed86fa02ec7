package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"smartmailr/internal/model"
	"smartmailr/pkg/circuitbreaker"
	"smartmailr/pkg/metrics"
	"smartmailr/pkg/trace"
)

// RemoteClient implements all four capability contracts against a remote
// capability service, one endpoint per capability. Calls are guarded by a
// circuit breaker; 5xx and transport failures surface as the capability's
// Unavailable kind so the stage executor retries them.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewRemoteClient(baseURL string) *RemoteClient {
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	}

	return &RemoteClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cb: circuitbreaker.NewCircuitBreaker(cbConfig),
	}
}

type classifyResponse struct {
	Intent string `json:"intent"`
}

type draftResponse struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

type actResponse struct {
	Kind    string `json:"kind"`
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

func (c *RemoteClient) Classify(ctx context.Context, msg model.Message) (model.Intent, error) {
	var resp classifyResponse
	if err := c.post(ctx, "/classify", ClassificationUnavailable, map[string]any{
		"message": msg,
	}, &resp); err != nil {
		return "", err
	}

	// Unknown labels never leak past the client.
	return model.ParseIntent(resp.Intent), nil
}

func (c *RemoteClient) Generate(ctx context.Context, msg model.Message, intent model.Intent, style model.Style) (model.Draft, error) {
	var resp draftResponse
	if err := c.post(ctx, "/generate", GenerationUnavailable, map[string]any{
		"message": msg,
		"intent":  intent,
		"style":   style,
	}, &resp); err != nil {
		return model.Draft{}, err
	}

	if resp.Text == "" {
		return model.Draft{}, Unavailable(GenerationUnavailable, fmt.Errorf("empty draft from generator"))
	}

	return model.Draft{Text: resp.Text, Style: style}, nil
}

func (c *RemoteClient) Correct(ctx context.Context, draft model.Draft) (model.Draft, error) {
	var resp draftResponse
	if err := c.post(ctx, "/correct", CorrectionUnavailable, map[string]any{
		"draft": draft,
	}, &resp); err != nil {
		return model.Draft{}, err
	}

	if resp.Text == "" {
		return model.Draft{}, Unavailable(CorrectionUnavailable, fmt.Errorf("empty draft from corrector"))
	}

	return model.Draft{Text: resp.Text, Style: draft.Style}, nil
}

func (c *RemoteClient) Act(ctx context.Context, intent model.Intent, draft model.Draft, msg model.Message) (model.ActionResult, error) {
	var resp actResponse
	if err := c.post(ctx, "/act", ActionUnavailable, map[string]any{
		"intent":  intent,
		"draft":   draft,
		"message": msg,
	}, &resp); err != nil {
		return model.ActionResult{}, err
	}

	return model.ActionResult{
		Kind:    model.ActionKind(resp.Kind),
		Success: resp.Success,
		Detail:  resp.Detail,
	}, nil
}

// post runs one capability call under the circuit breaker and records its
// latency. 5xx, transport errors and an open breaker map to kind; other
// non-200 statuses are permanent errors.
func (c *RemoteClient) post(ctx context.Context, endpoint string, kind ErrorKind, payload any, out any) error {
	err := c.cb.Execute(func() error {
		start := time.Now()

		b, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return marshalErr
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(b))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName(), traceID)
		}

		resp, doErr := c.httpClient.Do(req)
		latency := time.Since(start)

		if doErr != nil {
			metrics.RecordProviderCallLatency(endpoint, "error", latency)
			return Unavailable(kind, doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			metrics.RecordProviderCallLatency(endpoint, "5xx", latency)
			return Unavailable(kind, fmt.Errorf("capability service 5xx: %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			metrics.RecordProviderCallLatency(endpoint, fmt.Sprintf("%d", resp.StatusCode), latency)
			return fmt.Errorf("capability service error: %d", resp.StatusCode)
		}

		metrics.RecordProviderCallLatency(endpoint, "success", latency)
		return json.NewDecoder(resp.Body).Decode(out)
	})

	if err == circuitbreaker.ErrCircuitBreakerOpen {
		// An open breaker is a transient outage from the pipeline's view.
		return Unavailable(kind, err)
	}

	return err
}

// NewRemoteProviders bundles a remote backend from one client.
func NewRemoteProviders(baseURL string) Providers {
	client := NewRemoteClient(baseURL)
	return Providers{
		Classifier: client,
		Generator:  client,
		Corrector:  client,
		Actor:      client,
	}
}
