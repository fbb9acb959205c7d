package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

const webhookContentType = "application/json; charset=UTF-8"

type webhookAdapter struct {
	delivery
	cfg    *publisher.WebhookConfig
	client *http.Client
	body   []byte
}

func NewWebhook(_ context.Context, p *publisher.Publisher, deps Deps) (Adapter, error) {
	cfg := p.Target.Webhook
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.ErrConfiguration.WithMessage("webhook target requires an endpoint")
	}
	switch cfg.AuthType {
	case "", publisher.WebhookAuthNone:
	case publisher.WebhookAuthBasic:
		if cfg.Username == "" {
			return nil, errors.ErrConfiguration.WithMessage("basic auth requires a username")
		}
	case publisher.WebhookAuthBearer:
		if cfg.Token == "" {
			return nil, errors.ErrConfiguration.WithMessage("bearer auth requires a token")
		}
	default:
		return nil, errors.ErrConfiguration.
			WithMessage("unsupported webhook auth type").
			WithDetail("auth_type", string(cfg.AuthType))
	}

	return &webhookAdapter{
		delivery: newDelivery(p, deps),
		cfg:      cfg,
		client:   deps.HTTPClient,
	}, nil
}

func (w *webhookAdapter) Prepare(ctx context.Context, event *models.Event) bool {
	body, err := json.Marshal(event)
	if err != nil {
		w.fail(ctx, errors.ErrTransform.WithCause(err).WithMessage("failed to encode event"))
		return false
	}
	w.body = body
	return true
}

func (w *webhookAdapter) Send(ctx context.Context) {
	if w.body == nil {
		return
	}
	w.run(ctx, "webhook.send", w.post(w.body))
}

func (w *webhookAdapter) SendPing(ctx context.Context) {
	w.run(ctx, "webhook.ping", w.post(PingBody))
}

func (w *webhookAdapter) post(body []byte) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return errors.ErrConfiguration.WithCause(err).WithMessage("invalid webhook endpoint")
		}
		req.Header.Set("Content-Type", webhookContentType)

		switch w.cfg.AuthType {
		case publisher.WebhookAuthBasic:
			req.SetBasicAuth(w.cfg.Username, w.cfg.Password)
		case publisher.WebhookAuthBearer:
			req.Header.Set("Authorization", "Bearer "+w.cfg.Token)
		}

		_, err = do(w.client, req)
		return err
	}
}
