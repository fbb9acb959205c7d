package management

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"herald/internal/publisher"
	"herald/pkg/errors"
)

type memoryStore struct {
	mu         sync.Mutex
	seq        int
	publishers map[string]publisher.Publisher
}

func newMemoryStore() *memoryStore {
	return &memoryStore{publishers: map[string]publisher.Publisher{}}
}

func (s *memoryStore) RetrievePublishers(_ context.Context, skip, limit int) ([]publisher.Publisher, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.publishers))
	for id := range s.publishers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var page []publisher.Publisher
	for i := skip; i < len(ids) && i < skip+limit; i++ {
		page = append(page, s.publishers[ids[i]])
	}
	return page, len(ids), nil
}

func (s *memoryStore) RetrievePublisher(_ context.Context, id string) (*publisher.Publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.publishers[id]
	if !ok {
		return nil, errors.ErrNotFound.WithDetail("id", id)
	}
	return &p, nil
}

func (s *memoryStore) CreatePublisher(_ context.Context, p *publisher.Publisher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p.ID = fmt.Sprintf("pub-%02d", s.seq)
	s.publishers[p.ID] = *p
	return nil
}

func (s *memoryStore) UpdatePublisher(_ context.Context, p *publisher.Publisher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.publishers[p.ID]; !ok {
		return errors.ErrNotFound.WithDetail("id", p.ID)
	}
	s.publishers[p.ID] = *p
	return nil
}

func (s *memoryStore) DeletePublisher(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.publishers[id]; !ok {
		return errors.ErrNotFound.WithDetail("id", id)
	}
	delete(s.publishers, id)
	return nil
}

type memoryAudit struct {
	mu   sync.Mutex
	logs []AuditLog
	err  error
}

func (a *memoryAudit) CreateAuditLog(_ context.Context, entry *AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, *entry)
	return nil
}

func (a *memoryAudit) GetAuditLogs(_ context.Context, publisherID string, limit int) ([]AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []AuditLog{}
	for i := len(a.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if publisherID == "" || a.logs[i].PublisherID == publisherID {
			out = append(out, a.logs[i])
		}
	}
	return out, nil
}

func webhookRequest() CreatePublisherRequest {
	return CreatePublisherRequest{
		Name: "lab webhook",
		Filter: publisher.Filter{
			EventType:     publisher.EventTypeModuleResult,
			ListenerType:  publisher.ListenerDeploymentIDs,
			DeploymentIDs: []string{"d1"},
			Condition:     `moduleId == "Weight"`,
		},
		Target: publisher.Target{
			PublisherType: publisher.TargetWebhook,
			Retry:         3,
			Webhook: &publisher.WebhookConfig{
				Endpoint: "https://hooks.example.test/results",
				AuthType: publisher.WebhookAuthBasic,
				Username: "svc",
				Password: "s3cret",
			},
		},
	}
}
