package management

import (
	"fmt"
	"net/url"
	"strings"

	"herald/internal/publisher"
	"herald/pkg/cel"
)

var validEventTypes = map[publisher.EventType]bool{
	publisher.EventTypePing:         true,
	publisher.EventTypeModuleResult: true,
}

var validListenerTypes = map[publisher.ListenerType]bool{
	publisher.ListenerGlobal:          true,
	publisher.ListenerDeploymentIDs:   true,
	publisher.ListenerOrganizationIDs: true,
}

var validSASLMechanisms = map[string]bool{
	"":                                 true,
	publisher.SASLMechanismPlain:       true,
	publisher.SASLMechanismScramSHA256: true,
	publisher.SASLMechanismScramSHA512: true,
}

// Validator checks publisher documents before they reach the store.
type Validator struct {
	evaluator *cel.Evaluator
}

func NewValidator(evaluator *cel.Evaluator) *Validator {
	return &Validator{evaluator: evaluator}
}

func (v *Validator) ValidatePublisher(p *publisher.Publisher) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := v.validateFilter(p.Filter); err != nil {
		return err
	}
	if err := validateTransform(p.Transform); err != nil {
		return err
	}
	return validateTarget(p.Target)
}

func (v *Validator) validateFilter(f publisher.Filter) error {
	if !validEventTypes[f.EventType] {
		return fmt.Errorf("invalid filter.eventType: %s. Allowed: PING, MODULE_RESULT", f.EventType)
	}
	if !validListenerTypes[f.ListenerType] {
		return fmt.Errorf("invalid filter.listenerType: %s. Allowed: GLOBAL, DEPLOYMENT_IDS, ORGANIZATION_IDS", f.ListenerType)
	}
	if f.ListenerType == publisher.ListenerDeploymentIDs && len(f.DeploymentIDs) == 0 {
		return fmt.Errorf("filter.deploymentIds is required for DEPLOYMENT_IDS listeners")
	}
	if f.ListenerType == publisher.ListenerOrganizationIDs && len(f.OrganizationIDs) == 0 {
		return fmt.Errorf("filter.organizationIds is required for ORGANIZATION_IDS listeners")
	}
	if f.Condition != "" && v.evaluator != nil {
		if err := v.evaluator.ValidateCondition(f.Condition); err != nil {
			return fmt.Errorf("invalid filter.condition: %w", err)
		}
	}
	return nil
}

func validateTransform(t publisher.Transform) error {
	for _, field := range append(append([]string{}, t.IncludeFields...), t.ExcludeFields...) {
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("transform field names cannot be empty")
		}
	}
	return nil
}

func validateTarget(t publisher.Target) error {
	if t.Retry < 0 {
		return fmt.Errorf("target.retry must be non-negative")
	}

	switch t.PublisherType {
	case publisher.TargetWebhook:
		if t.Webhook == nil {
			return fmt.Errorf("target.webhook is required for WEBHOOK publishers")
		}
		if err := validateURL("target.webhook.endpoint", t.Webhook.Endpoint); err != nil {
			return err
		}
		switch t.Webhook.AuthType {
		case "", publisher.WebhookAuthNone:
		case publisher.WebhookAuthBasic:
			if t.Webhook.Username == "" {
				return fmt.Errorf("target.webhook.username is required for BASIC auth")
			}
		case publisher.WebhookAuthBearer:
			if t.Webhook.Token == "" {
				return fmt.Errorf("target.webhook.token is required for BEARER auth")
			}
		default:
			return fmt.Errorf("invalid target.webhook.authType: %s. Allowed: NONE, BASIC, BEARER", t.Webhook.AuthType)
		}
	case publisher.TargetKafka:
		k := t.Kafka
		if k == nil {
			return fmt.Errorf("target.kafka is required for KAFKA publishers")
		}
		if k.URL == "" || k.Topic == "" {
			return fmt.Errorf("target.kafka.url and target.kafka.topic are required")
		}
		if k.AuthType != publisher.KafkaAuthSASLSSL && k.AuthType != publisher.KafkaAuthSASLPlaintext {
			return fmt.Errorf("invalid target.kafka.authType: %s. Allowed: SASL_SSL, SASL_PLAINTEXT", k.AuthType)
		}
		if !validSASLMechanisms[strings.ToUpper(k.SASLMechanism)] {
			return fmt.Errorf("invalid target.kafka.saslMechanism: %s", k.SASLMechanism)
		}
		if k.SASLUsername == "" || k.SASLPassword == "" {
			return fmt.Errorf("target.kafka.saslUsername and target.kafka.saslPassword are required")
		}
	case publisher.TargetGCPFHIR:
		if t.GCPFHIR == nil {
			return fmt.Errorf("target.gcp_fhir is required for GCPFHIR publishers")
		}
		if err := validateURL("target.gcp_fhir.url", t.GCPFHIR.URL); err != nil {
			return err
		}
		if t.GCPFHIR.ServiceAccountData == "" {
			return fmt.Errorf("target.gcp_fhir.serviceAccountData is required")
		}
	default:
		return fmt.Errorf("invalid target.publisherType: %s. Allowed: WEBHOOK, KAFKA, GCPFHIR", t.PublisherType)
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL", field)
	}
	return nil
}
