package models

import "encoding/json"

// Field names of the event envelope as delivered to publishers.
const (
	FieldPrimitives     = "primitives"
	FieldModuleID       = "moduleId"
	FieldDeploymentID   = "deploymentId"
	FieldDeviceName     = "deviceName"
	FieldModuleConfigID = "moduleConfigId"
)

// Field names found inside a primitive record.
const (
	PrimitiveFieldID             = "id"
	PrimitiveFieldUserID         = "userId"
	PrimitiveFieldModuleID       = "moduleId"
	PrimitiveFieldDeploymentID   = "deploymentId"
	PrimitiveFieldSubmitterID    = "submitterId"
	PrimitiveFieldCreateDateTime = "createDateTime"
	PrimitiveFieldClass          = "_cls"
	PrimitiveFieldUser           = "user"
)

// Primitive is one health-data record keyed by field name.
type Primitive map[string]interface{}

// PrimitiveRef is the compact reference carried through the task queue.
type PrimitiveRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

// Event is one module-result submission rehydrated for dispatch.
// It is never persisted.
type Event struct {
	ModuleID       string      `json:"moduleId"`
	DeploymentID   string      `json:"deploymentId"`
	DeviceName     string      `json:"deviceName"`
	ModuleConfigID string      `json:"moduleConfigId"`
	Primitives     []Primitive `json:"primitives"`

	// OmittedFields lists envelope fields removed by a publisher's
	// exclusion rules; they are left out of the wire payload.
	OmittedFields map[string]struct{} `json:"-"`
}

// Clone returns a deep copy whose maps and slices share nothing with e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	if e.OmittedFields != nil {
		out.OmittedFields = make(map[string]struct{}, len(e.OmittedFields))
		for k := range e.OmittedFields {
			out.OmittedFields[k] = struct{}{}
		}
	}
	if e.Primitives != nil {
		out.Primitives = make([]Primitive, len(e.Primitives))
		for i, p := range e.Primitives {
			out.Primitives[i] = Primitive(CloneMap(p))
		}
	}
	return &out
}

// ToMap renders the event in its wire shape.
func (e *Event) ToMap() map[string]interface{} {
	primitives := make([]interface{}, len(e.Primitives))
	for i, p := range e.Primitives {
		primitives[i] = map[string]interface{}(p)
	}

	out := map[string]interface{}{
		FieldPrimitives:     primitives,
		FieldModuleID:       e.ModuleID,
		FieldDeploymentID:   e.DeploymentID,
		FieldDeviceName:     e.DeviceName,
		FieldModuleConfigID: e.ModuleConfigID,
	}
	for field := range e.OmittedFields {
		delete(out, field)
	}
	return out
}

// Omit drops an envelope field from the wire payload.
func (e *Event) Omit(field string) {
	switch field {
	case FieldModuleID, FieldDeploymentID, FieldDeviceName, FieldModuleConfigID, FieldPrimitives:
	default:
		return
	}
	if e.OmittedFields == nil {
		e.OmittedFields = make(map[string]struct{})
	}
	e.OmittedFields[field] = struct{}{}
}

func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

// CloneMap deep-copies nested maps and slices. Other values are copied by
// assignment.
func CloneMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return CloneMap(val)
	case Primitive:
		return Primitive(CloneMap(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}

// PingPayload is the fixed liveness check body.
var PingPayload = map[string]string{"ping": "pong"}

// PruneNil removes nil values from m in place, descending into nested maps
// and into maps held by slices.
func PruneNil(m map[string]interface{}) {
	for k, v := range m {
		if v == nil {
			delete(m, k)
			continue
		}
		pruneValue(v)
	}
}

func pruneValue(v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		PruneNil(val)
	case Primitive:
		PruneNil(val)
	case []interface{}:
		for _, item := range val {
			pruneValue(item)
		}
	}
}
