package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"herald/internal/constants"
	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

const (
	fhirContentType = "application/fhir+json;charset=utf-8"
	fhirScope       = "https://www.googleapis.com/auth/cloud-platform"
)

// FHIRClientFunc returns an authorized client for a FHIR store.
type FHIRClientFunc func(ctx context.Context, serviceAccountJSON string, timeout time.Duration) (*http.Client, error)

// GoogleFHIRClient authorizes requests with a service account key.
func GoogleFHIRClient(ctx context.Context, serviceAccountJSON string, timeout time.Duration) (*http.Client, error) {
	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	creds, err := google.CredentialsFromJSON(ctx, []byte(serviceAccountJSON), fhirScope)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout
	return client, nil
}

type gcpFHIRAdapter struct {
	delivery
	cfg         *publisher.GCPFHIRConfig
	baseURL     string
	client      *http.Client
	observation *fhirObservation
	patient     *fhirPatient
}

func NewGCPFHIR(ctx context.Context, p *publisher.Publisher, deps Deps) (Adapter, error) {
	cfg := p.Target.GCPFHIR
	if cfg == nil || cfg.URL == "" || cfg.ServiceAccountData == "" {
		return nil, errors.ErrConfiguration.WithMessage("gcp fhir target requires url and service account data")
	}

	timeout := deps.Config.FHIR.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	client, err := deps.FHIRClient(ctx, cfg.ServiceAccountData, timeout)
	if err != nil {
		return nil, errors.ErrConfiguration.WithCause(err).WithMessage("invalid service account data")
	}

	return &gcpFHIRAdapter{
		delivery: newDelivery(p, deps),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		client:   client,
	}, nil
}

// OverrideTransform forces the settings the resource conversion relies on.
func (a *gcpFHIRAdapter) OverrideTransform(t publisher.Transform) publisher.Transform {
	t.IncludeNullFields = false
	t.IncludeUserMetaData = true
	t.DeIdentified = false
	return t
}

func (a *gcpFHIRAdapter) Prepare(ctx context.Context, event *models.Event) bool {
	if len(event.Primitives) == 0 {
		a.fail(ctx, errors.ErrTransform.WithMessage("event has no primitives"))
		return false
	}

	prim := event.Primitives[0]
	user, _ := prim[models.PrimitiveFieldUser].(map[string]interface{})
	userID := stringField(prim, models.PrimitiveFieldUserID)
	if userID == "" {
		userID = stringField(user, "id")
	}
	if userID == "" {
		a.fail(ctx, errors.ErrTransform.WithMessage("primitive has no user id"))
		return false
	}

	obs := newObservation(event, prim, a.cfg.Config)
	patient := newPatient(userID, user, a.cfg.Config)
	a.observation, a.patient = &obs, &patient
	return true
}

func (a *gcpFHIRAdapter) Send(ctx context.Context) {
	if a.observation == nil {
		return
	}
	a.run(ctx, "gcpfhir.send", func(ctx context.Context) error {
		patientID, err := a.ensurePatient(ctx)
		if err != nil {
			return err
		}
		obs := *a.observation
		obs.Subject = &fhirReference{Reference: "Patient/" + patientID}
		_, err = a.create(ctx, "Observation", obs)
		return err
	})
}

func (a *gcpFHIRAdapter) SendPing(ctx context.Context) {
	a.run(ctx, "gcpfhir.ping", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/metadata", nil)
		if err != nil {
			return errors.ErrConfiguration.WithCause(err).WithMessage("invalid fhir store url")
		}
		req.Header.Set("Accept", fhirContentType)
		_, err = do(a.client, req)
		return err
	})
}

// ensurePatient returns the id of the patient matching the identifier,
// creating it when the store has none.
func (a *gcpFHIRAdapter) ensurePatient(ctx context.Context) (string, error) {
	query := url.Values{"identifier": {a.patient.identifierQuery()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/Patient?"+query.Encode(), nil)
	if err != nil {
		return "", errors.ErrConfiguration.WithCause(err).WithMessage("invalid fhir store url")
	}
	req.Header.Set("Accept", fhirContentType)

	body, err := do(a.client, req)
	if err != nil {
		return "", err
	}

	var bundle fhirBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return "", errors.ErrDelivery.WithCause(err).WithMessage("malformed patient search response")
	}
	if bundle.Total > 0 && len(bundle.Entry) > 0 {
		return bundle.Entry[0].Resource.ID, nil
	}

	return a.create(ctx, "Patient", a.patient)
}

func (a *gcpFHIRAdapter) create(ctx context.Context, resourceType string, resource interface{}) (string, error) {
	payload, err := json.Marshal(resource)
	if err != nil {
		return "", errors.ErrTransform.WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/"+resourceType, bytes.NewReader(payload))
	if err != nil {
		return "", errors.ErrConfiguration.WithCause(err).WithMessage("invalid fhir store url")
	}
	req.Header.Set("Content-Type", fhirContentType)

	body, err := do(a.client, req)
	if err != nil {
		return "", err
	}

	var created fhirCreated
	if err := json.Unmarshal(body, &created); err != nil {
		return "", errors.ErrDelivery.WithCause(err).WithMessage("malformed create response")
	}
	return created.ID, nil
}
