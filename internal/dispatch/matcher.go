package dispatch

import (
	"context"
	"strings"

	"herald/internal/logger"
	"herald/internal/organization"
	"herald/internal/publisher"
	"herald/pkg/cel"
	"herald/pkg/errors"
	"herald/pkg/models"
)

// Matcher decides whether a publisher subscribes to an event.
type Matcher struct {
	orgs      organization.Repository
	evaluator *cel.Evaluator
	logger    logger.Logger
}

func NewMatcher(orgs organization.Repository, evaluator *cel.Evaluator, log logger.Logger) *Matcher {
	return &Matcher{orgs: orgs, evaluator: evaluator, logger: log}
}

// Match checks scope first, then the module allow-list and deny-list, then
// the optional CEL condition. Ping publishers only need the scope.
func (m *Matcher) Match(ctx context.Context, p *publisher.Publisher, event *models.Event) (bool, error) {
	ok, err := m.matchScope(ctx, p, event)
	if err != nil || !ok {
		return false, err
	}

	if p.IsPing() {
		return true, nil
	}

	if len(p.Filter.ModuleNames) > 0 && !contains(p.Filter.ModuleNames, event.ModuleID) {
		return false, nil
	}
	if contains(p.Filter.ExcludedModuleNames, event.ModuleID) {
		return false, nil
	}

	if p.Filter.Condition == "" {
		return true, nil
	}
	if m.evaluator == nil {
		return false, errors.ErrMatch.WithMessage("condition set but no evaluator configured")
	}
	ok, err = m.evaluator.EvaluateCondition(ctx, p.Filter.Condition, event)
	if err != nil {
		return false, errors.ErrMatch.WithCause(err).WithDetail("condition", p.Filter.Condition)
	}
	return ok, nil
}

func (m *Matcher) matchScope(ctx context.Context, p *publisher.Publisher, event *models.Event) (bool, error) {
	switch p.Filter.ListenerType {
	case publisher.ListenerGlobal:
		return true, nil

	case publisher.ListenerDeploymentIDs:
		target := normalizeID(event.DeploymentID)
		for _, id := range p.Filter.DeploymentIDs {
			if normalizeID(id) == target {
				return true, nil
			}
		}
		return false, nil

	case publisher.ListenerOrganizationIDs:
		target := normalizeID(event.DeploymentID)
		for _, orgID := range p.Filter.OrganizationIDs {
			org, err := m.orgs.RetrieveOrganization(ctx, orgID)
			if errors.IsNotFound(err) {
				m.logger.WarnwCtx(ctx, "Publisher references unknown organization",
					"publisher_id", p.ID,
					"organization_id", orgID,
				)
				continue
			}
			if err != nil {
				return false, errors.ErrMatch.WithCause(err).WithDetail("organization_id", orgID)
			}
			for _, id := range org.DeploymentIDs {
				if normalizeID(id) == target {
					return true, nil
				}
			}
		}
		return false, nil
	}

	return false, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
