// Package management implements the publisher administration API: CRUD
// over the publisher store with validation, secret masking and an audit
// trail.
package management

import (
	"context"
	"encoding/json"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/internal/publisher"
	pkgerrors "herald/pkg/errors"
	"herald/pkg/metrics"
)

type Service interface {
	CreatePublisher(ctx context.Context, req CreatePublisherRequest) (*publisher.Publisher, error)
	ListPublishers(ctx context.Context, skip, limit int) (*ListPublishersResponse, error)
	GetPublisher(ctx context.Context, id string) (*publisher.Publisher, error)
	UpdatePublisher(ctx context.Context, id string, req UpdatePublisherRequest) (*publisher.Publisher, error)
	DeletePublisher(ctx context.Context, id string) error
	GetAuditLogs(ctx context.Context, publisherID string, limit int) ([]AuditLog, error)
}

type service struct {
	store     publisher.Store
	validator *Validator
	auditRepo AuditRepository
	logger    logger.Logger
}

type ServiceOption func(*service)

func WithAudit(repo AuditRepository) ServiceOption {
	return func(s *service) {
		s.auditRepo = repo
	}
}

func WithLogger(log logger.Logger) ServiceOption {
	return func(s *service) {
		s.logger = log
	}
}

func NewService(store publisher.Store, validator *Validator, opts ...ServiceOption) Service {
	s := &service{
		store:     store,
		validator: validator,
		logger:    logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreatePublisher(ctx context.Context, req CreatePublisherRequest) (*publisher.Publisher, error) {
	p := &publisher.Publisher{
		Name:      req.Name,
		Enabled:   getEnabledValue(req.Enabled),
		Filter:    req.Filter,
		Transform: req.Transform,
		Target:    req.Target,
	}
	if err := s.validator.ValidatePublisher(p); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}

	if err := s.store.CreatePublisher(ctx, p); err != nil {
		return nil, s.storeError(err)
	}

	s.audit(ctx, p.ID, ActionCreate, nil, p)
	return masked(p), nil
}

func (s *service) ListPublishers(ctx context.Context, skip, limit int) (*ListPublishersResponse, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}

	page, total, err := s.store.RetrievePublishers(ctx, skip, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	items := make([]publisher.Publisher, len(page))
	for i := range page {
		items[i] = *masked(&page[i])
	}
	return &ListPublishersResponse{Items: items, Total: total, Skip: skip, Limit: limit}, nil
}

func (s *service) GetPublisher(ctx context.Context, id string) (*publisher.Publisher, error) {
	p, err := s.store.RetrievePublisher(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	return masked(p), nil
}

func (s *service) UpdatePublisher(ctx context.Context, id string, req UpdatePublisherRequest) (*publisher.Publisher, error) {
	current, err := s.store.RetrievePublisher(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	old := *current

	updated := *current
	applyUpdate(&updated, req)
	keepSecrets(&updated.Target, current.Target)

	if err := s.validator.ValidatePublisher(&updated); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
	}
	if err := s.store.UpdatePublisher(ctx, &updated); err != nil {
		return nil, s.storeError(err)
	}

	s.audit(ctx, id, ActionUpdate, &old, &updated)
	return masked(&updated), nil
}

func (s *service) DeletePublisher(ctx context.Context, id string) error {
	current, err := s.store.RetrievePublisher(ctx, id)
	if err != nil {
		return s.storeError(err)
	}
	if err := s.store.DeletePublisher(ctx, id); err != nil {
		return s.storeError(err)
	}

	s.audit(ctx, id, ActionDelete, current, nil)
	return nil
}

func (s *service) GetAuditLogs(ctx context.Context, publisherID string, limit int) ([]AuditLog, error) {
	if s.auditRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	logs, err := s.auditRepo.GetAuditLogs(ctx, publisherID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return logs, nil
}

// audit failures are logged and never fail the request.
func (s *service) audit(ctx context.Context, id, action string, oldValue, newValue *publisher.Publisher) {
	metrics.IncPublisherChange(action)
	s.logger.InfowCtx(ctx, "Publisher changed", "publisher_id", id, "action", action, "changed_by", getChangedBy(ctx))
	if s.auditRepo == nil {
		return
	}
	entry := &AuditLog{
		PublisherID: id,
		Action:      action,
		OldValue:    toMap(oldValue),
		NewValue:    toMap(newValue),
		ChangedBy:   getChangedBy(ctx),
	}
	if err := s.auditRepo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to write audit log", "error", err, "publisher_id", id, "action", action)
	}
}

func (s *service) storeError(err error) error {
	if pkgerrors.IsNotFound(err) || pkgerrors.Code(err) == pkgerrors.ErrConflict.Code {
		return err
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func applyUpdate(p *publisher.Publisher, req UpdatePublisherRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}
	if req.Filter != nil {
		p.Filter = *req.Filter
	}
	if req.Transform != nil {
		p.Transform = *req.Transform
	}
	if req.Target != nil {
		p.Target = *req.Target
	}
}

// keepSecrets restores stored credentials the caller echoed back masked.
func keepSecrets(next *publisher.Target, stored publisher.Target) {
	if next.Webhook != nil && stored.Webhook != nil {
		w := *next.Webhook
		if w.Password == constants.SecretMask {
			w.Password = stored.Webhook.Password
		}
		if w.Token == constants.SecretMask {
			w.Token = stored.Webhook.Token
		}
		next.Webhook = &w
	}
	if next.Kafka != nil && stored.Kafka != nil && next.Kafka.SASLPassword == constants.SecretMask {
		k := *next.Kafka
		k.SASLPassword = stored.Kafka.SASLPassword
		next.Kafka = &k
	}
	if next.GCPFHIR != nil && stored.GCPFHIR != nil && next.GCPFHIR.ServiceAccountData == constants.SecretMask {
		f := *next.GCPFHIR
		f.ServiceAccountData = stored.GCPFHIR.ServiceAccountData
		next.GCPFHIR = &f
	}
}

// masked returns a copy with every credential replaced by the mask.
func masked(p *publisher.Publisher) *publisher.Publisher {
	out := *p
	if w := p.Target.Webhook; w != nil {
		c := *w
		c.Password = maskValue(c.Password)
		c.Token = maskValue(c.Token)
		out.Target.Webhook = &c
	}
	if k := p.Target.Kafka; k != nil {
		c := *k
		c.SASLPassword = maskValue(c.SASLPassword)
		out.Target.Kafka = &c
	}
	if f := p.Target.GCPFHIR; f != nil {
		c := *f
		c.ServiceAccountData = maskValue(c.ServiceAccountData)
		out.Target.GCPFHIR = &c
	}
	return &out
}

func maskValue(v string) string {
	if v == "" {
		return ""
	}
	return constants.SecretMask
}

func toMap(p *publisher.Publisher) map[string]interface{} {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(masked(p))
	if err != nil {
		return nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

func getEnabledValue(reqEnabled *bool) bool {
	if reqEnabled == nil {
		return true
	}
	return *reqEnabled
}

type changedByKey struct{}

// WithChangedBy records who is making a change for the audit trail.
func WithChangedBy(ctx context.Context, who string) context.Context {
	if who == "" {
		return ctx
	}
	return context.WithValue(ctx, changedByKey{}, who)
}

func getChangedBy(ctx context.Context) string {
	if who, ok := ctx.Value(changedByKey{}).(string); ok {
		return who
	}
	return "system"
}
