package adapter

import (
	"fmt"
	"sort"
	"strings"

	"herald/pkg/models"
)

// Defaults for the template keys of a GCPFHIR target's config map.
const (
	fhirConfigIdentifierSystem = "identifierSystem"
	fhirConfigCodeSystem       = "codeSystem"

	defaultIdentifierSystem = "urn:herald:user"
	defaultCodeSystem       = "urn:herald:module"
)

type fhirCoding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type fhirCodeableConcept struct {
	Coding []fhirCoding `json:"coding,omitempty"`
	Text   string       `json:"text,omitempty"`
}

type fhirQuantity struct {
	Value float64 `json:"value"`
}

type fhirReference struct {
	Reference string `json:"reference"`
}

type fhirIdentifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
}

type fhirComponent struct {
	Code          fhirCodeableConcept `json:"code"`
	ValueQuantity *fhirQuantity       `json:"valueQuantity,omitempty"`
	ValueString   string              `json:"valueString,omitempty"`
	ValueBoolean  *bool               `json:"valueBoolean,omitempty"`
}

type fhirObservation struct {
	ResourceType      string              `json:"resourceType"`
	Identifier        []fhirIdentifier    `json:"identifier,omitempty"`
	Status            string              `json:"status"`
	Code              fhirCodeableConcept `json:"code"`
	Subject           *fhirReference      `json:"subject,omitempty"`
	EffectiveDateTime string              `json:"effectiveDateTime,omitempty"`
	Issued            string              `json:"issued,omitempty"`
	ValueQuantity     *fhirQuantity       `json:"valueQuantity,omitempty"`
	Component         []fhirComponent     `json:"component,omitempty"`
}

type fhirHumanName struct {
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

type fhirContactPoint struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type fhirPatient struct {
	ResourceType string             `json:"resourceType"`
	Identifier   []fhirIdentifier   `json:"identifier"`
	Name         []fhirHumanName    `json:"name,omitempty"`
	Gender       string             `json:"gender,omitempty"`
	BirthDate    string             `json:"birthDate,omitempty"`
	Telecom      []fhirContactPoint `json:"telecom,omitempty"`
}

type fhirBundle struct {
	Total int `json:"total"`
	Entry []struct {
		Resource struct {
			ID string `json:"id"`
		} `json:"resource"`
	} `json:"entry"`
}

type fhirCreated struct {
	ID string `json:"id"`
}

// Primitive keys that describe the record rather than a measurement.
var nonMeasurementFields = map[string]struct{}{
	models.PrimitiveFieldID:             {},
	models.PrimitiveFieldUserID:         {},
	models.PrimitiveFieldModuleID:       {},
	models.PrimitiveFieldDeploymentID:   {},
	models.PrimitiveFieldSubmitterID:    {},
	models.PrimitiveFieldCreateDateTime: {},
	models.PrimitiveFieldClass:          {},
	models.PrimitiveFieldUser:           {},
	"startDateTime":                     {},
	"updateDateTime":                    {},
	"deviceName":                        {},
	"moduleConfigId":                    {},
	"moduleResultId":                    {},
	"version":                           {},
}

func newObservation(event *models.Event, prim models.Primitive, cfg map[string]string) fhirObservation {
	codeSystem := configValue(cfg, fhirConfigCodeSystem, defaultCodeSystem)

	obs := fhirObservation{
		ResourceType: "Observation",
		Status:       "final",
		Code: fhirCodeableConcept{
			Coding: []fhirCoding{{System: codeSystem, Code: event.ModuleID, Display: event.ModuleID}},
			Text:   event.ModuleID,
		},
		Issued: stringField(prim, models.PrimitiveFieldCreateDateTime),
	}
	if cls := stringField(prim, models.PrimitiveFieldClass); cls != "" {
		obs.Code.Text = cls
	}
	if id := stringField(prim, models.PrimitiveFieldID); id != "" {
		obs.Identifier = []fhirIdentifier{{System: codeSystem, Value: id}}
	}
	obs.EffectiveDateTime = stringField(prim, "startDateTime")
	if obs.EffectiveDateTime == "" {
		obs.EffectiveDateTime = obs.Issued
	}

	keys := make([]string, 0, len(prim))
	for k := range prim {
		if _, skip := nonMeasurementFields[k]; !skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := prim[k]
		if k == "value" {
			if f, ok := toFloat(v); ok {
				obs.ValueQuantity = &fhirQuantity{Value: f}
				continue
			}
		}
		comp := fhirComponent{Code: fhirCodeableConcept{Coding: []fhirCoding{{System: codeSystem, Code: k}}, Text: k}}
		switch val := v.(type) {
		case string:
			comp.ValueString = val
		case bool:
			b := val
			comp.ValueBoolean = &b
		default:
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			comp.ValueQuantity = &fhirQuantity{Value: f}
		}
		obs.Component = append(obs.Component, comp)
	}
	return obs
}

func newPatient(userID string, user map[string]interface{}, cfg map[string]string) fhirPatient {
	p := fhirPatient{
		ResourceType: "Patient",
		Identifier: []fhirIdentifier{{
			System: configValue(cfg, fhirConfigIdentifierSystem, defaultIdentifierSystem),
			Value:  userID,
		}},
	}

	given, family := stringField(user, "givenName"), stringField(user, "familyName")
	if given != "" || family != "" {
		name := fhirHumanName{Family: family}
		if given != "" {
			name.Given = []string{given}
		}
		p.Name = []fhirHumanName{name}
	}

	switch strings.ToLower(stringField(user, "gender")) {
	case "":
	case "male":
		p.Gender = "male"
	case "female":
		p.Gender = "female"
	case "other":
		p.Gender = "other"
	default:
		p.Gender = "unknown"
	}

	if dob := stringField(user, "dateOfBirth"); len(dob) >= 10 {
		p.BirthDate = dob[:10]
	}
	if email := stringField(user, "email"); email != "" {
		p.Telecom = append(p.Telecom, fhirContactPoint{System: "email", Value: email})
	}
	if phone := stringField(user, "phoneNumber"); phone != "" {
		p.Telecom = append(p.Telecom, fhirContactPoint{System: "phone", Value: phone})
	}
	return p
}

// identifierQuery is the token search value for the patient identifier.
func (p fhirPatient) identifierQuery() string {
	id := p.Identifier[0]
	return fmt.Sprintf("%s|%s", id.System, id.Value)
}

func configValue(cfg map[string]string, key, fallback string) string {
	if v := cfg[key]; v != "" {
		return v
	}
	return fallback
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
