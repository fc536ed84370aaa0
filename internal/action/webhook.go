package action

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Papertrail-Signature"

// AttemptGroupHeader carries the dedup key for at-least-once delivery.
const AttemptGroupHeader = "X-Papertrail-Attempt-Group"

// WebhookSink POSTs a JSON payload to the URL named in the action's
// params. Bodies are signed with a shared secret so receivers can
// authenticate the origin.
type WebhookSink struct {
	client *http.Client
	secret []byte
}

// WebhookOption configures a WebhookSink.
type WebhookOption func(*WebhookSink)

// WithHTTPClient overrides the HTTP client, for tests.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSink) {
		s.client = client
	}
}

// NewWebhookSink creates a WebhookSink signing bodies with secret.
func NewWebhookSink(secret []byte, opts ...WebhookOption) *WebhookSink {
	s := &WebhookSink{
		client: &http.Client{Timeout: 15 * time.Second},
		secret: secret,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WebhookSink) Type() workflow.ActionType {
	return workflow.ActionWebhook
}

// webhookBody is the JSON document POSTed to receivers.
type webhookBody struct {
	InstanceID   types.ID       `json:"instance_id"`
	DefinitionID types.ID       `json:"definition_id"`
	DocumentID   types.ID       `json:"document_id"`
	NodeID       string         `json:"node_id"`
	AttemptGroup types.ID       `json:"attempt_group"`
	Timestamp    time.Time      `json:"timestamp"`
	Params       map[string]any `json:"params,omitempty"`
}

func (s *WebhookSink) Deliver(ctx context.Context, req Request) error {
	url, ok := req.Params["url"].(string)
	if !ok || url == "" {
		// Misconfigured node, retrying cannot help.
		return types.NewError(types.ACTION_DISPATCH_FAILED,
			fmt.Sprintf("webhook node %s has no url param", req.NodeID))
	}

	body, err := json.Marshal(webhookBody{
		InstanceID:   req.InstanceID,
		DefinitionID: req.DefinitionID,
		DocumentID:   req.DocumentID,
		NodeID:       req.NodeID,
		AttemptGroup: req.AttemptGroup,
		Timestamp:    time.Now().UTC(),
		Params:       req.Params,
	})
	if err != nil {
		return types.WrapError(types.ACTION_DISPATCH_FAILED, "failed to marshal webhook body", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.WrapError(types.ACTION_DISPATCH_FAILED, "failed to build webhook request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(AttemptGroupHeader, req.AttemptGroup.String())
	httpReq.Header.Set(SignatureHeader, s.Sign(body))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return types.NewRetryableError(types.DELIVERY_FAILED, "webhook request failed", err)
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewRetryableError(types.DELIVERY_FAILED,
			fmt.Sprintf("webhook returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under the sink's secret.
func (s *WebhookSink) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ DeliverySink = (*WebhookSink)(nil)
