package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

type fhirStore struct {
	mu           sync.Mutex
	existing     string
	searches     []string
	patients     []map[string]interface{}
	observations []map[string]interface{}
	metadataHits int
}

func (s *fhirStore) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/fhir/Patient", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			s.searches = append(s.searches, r.URL.Query().Get("identifier"))
			if s.existing == "" {
				_, _ = w.Write([]byte(`{"resourceType":"Bundle","total":0}`))
				return
			}
			_, _ = w.Write([]byte(`{"resourceType":"Bundle","total":1,"entry":[{"resource":{"id":"` + s.existing + `"}}]}`))
		case http.MethodPost:
			assert.Equal(t, "application/fhir+json;charset=utf-8", r.Header.Get("Content-Type"))
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			s.patients = append(s.patients, body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"resourceType":"Patient","id":"P-new"}`))
		}
	})
	mux.HandleFunc("/fhir/Observation", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		s.observations = append(s.observations, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"resourceType":"Observation","id":"O1"}`))
	})
	mux.HandleFunc("/fhir/metadata", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.metadataHits++
		_, _ = w.Write([]byte(`{"resourceType":"CapabilityStatement"}`))
	})
	return mux
}

func fhirPublisher(url string) *publisher.Publisher {
	return &publisher.Publisher{
		ID: "pub-f",
		Target: publisher.Target{
			PublisherType: publisher.TargetGCPFHIR,
			Retry:         1,
			GCPFHIR: &publisher.GCPFHIRConfig{
				URL:                url + "/fhir/",
				ServiceAccountData: `{"type":"service_account"}`,
				Config:             map[string]string{"identifierSystem": "urn:acme:patients"},
			},
		},
	}
}

func fhirDeps(rep Reporter, client *http.Client) Deps {
	deps := testDeps(rep)
	deps.FHIRClient = func(context.Context, string, time.Duration) (*http.Client, error) {
		return client, nil
	}
	return deps
}

func fhirEvent() *models.Event {
	event := testEvent()
	event.Primitives[0]["user"] = map[string]interface{}{
		"id":         "U1",
		"givenName":  "Ada",
		"familyName": "Lovelace",
	}
	return event
}

func TestGCPFHIR_CreatesPatientWhenAbsent(t *testing.T) {
	store := &fhirStore{}
	srv := httptest.NewServer(store.handler(t))
	defer srv.Close()

	rep := &recordingReporter{}
	a, err := New(context.Background(), fhirPublisher(srv.URL), fhirDeps(rep, srv.Client()))
	require.NoError(t, err)

	require.True(t, a.Prepare(context.Background(), fhirEvent()))
	a.Send(context.Background())

	assert.Empty(t, rep.all())
	assert.Equal(t, []string{"urn:acme:patients|U1"}, store.searches)
	require.Len(t, store.patients, 1)
	assert.Equal(t, "Patient", store.patients[0]["resourceType"])

	require.Len(t, store.observations, 1)
	obs := store.observations[0]
	assert.Equal(t, "Observation", obs["resourceType"])
	assert.Equal(t, map[string]interface{}{"reference": "Patient/P-new"}, obs["subject"])
}

func TestGCPFHIR_ReusesExistingPatient(t *testing.T) {
	store := &fhirStore{existing: "P-9"}
	srv := httptest.NewServer(store.handler(t))
	defer srv.Close()

	a, err := New(context.Background(), fhirPublisher(srv.URL), fhirDeps(&recordingReporter{}, srv.Client()))
	require.NoError(t, err)

	require.True(t, a.Prepare(context.Background(), fhirEvent()))
	a.Send(context.Background())

	assert.Empty(t, store.patients)
	require.Len(t, store.observations, 1)
	assert.Equal(t, map[string]interface{}{"reference": "Patient/P-9"}, store.observations[0]["subject"])
}

func TestGCPFHIR_PingReadsMetadata(t *testing.T) {
	store := &fhirStore{}
	srv := httptest.NewServer(store.handler(t))
	defer srv.Close()

	rep := &recordingReporter{}
	a, err := New(context.Background(), fhirPublisher(srv.URL), fhirDeps(rep, srv.Client()))
	require.NoError(t, err)
	a.SendPing(context.Background())

	assert.Equal(t, 1, store.metadataHits)
	assert.Empty(t, rep.all())
}

func TestGCPFHIR_PrepareWithoutPrimitives(t *testing.T) {
	rep := &recordingReporter{}
	a, err := New(context.Background(), fhirPublisher("http://fhir.invalid"), fhirDeps(rep, http.DefaultClient))
	require.NoError(t, err)

	assert.False(t, a.Prepare(context.Background(), &models.Event{ModuleID: "Weight"}))
	require.Len(t, rep.all(), 1)
	assert.Equal(t, errors.ErrTransform.Code, errors.Code(rep.all()[0].Err))
}

func TestGCPFHIR_OverridesTransform(t *testing.T) {
	a, err := New(context.Background(), fhirPublisher("http://fhir.invalid"), fhirDeps(nil, http.DefaultClient))
	require.NoError(t, err)

	overrider, ok := a.(TransformOverrider)
	require.True(t, ok)

	got := overrider.OverrideTransform(publisher.Transform{
		DeIdentified:      true,
		IncludeNullFields: true,
		IncludeFields:     []string{"value"},
	})
	assert.False(t, got.DeIdentified)
	assert.False(t, got.IncludeNullFields)
	assert.True(t, got.IncludeUserMetaData)
	assert.Equal(t, []string{"value"}, got.IncludeFields)
}

func TestGCPFHIR_InvalidServiceAccount(t *testing.T) {
	p := fhirPublisher("http://fhir.invalid")
	p.Target.GCPFHIR.ServiceAccountData = "not-json"

	_, err := New(context.Background(), p, testDeps(nil))
	assert.True(t, errors.IsConfiguration(err))
}
