package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"herald/internal/publisher"
	"herald/internal/usermeta"
	"herald/pkg/errors"
	"herald/pkg/models"
)

// Fields every primitive keeps when a publisher restricts the payload to
// an include list.
var defaultIncludedFields = []string{
	models.PrimitiveFieldModuleID,
	models.PrimitiveFieldCreateDateTime,
	models.PrimitiveFieldUserID,
}

// Transformer shapes an event for one publisher. It mutates the event it is
// given, so callers pass their own clone.
type Transformer struct {
	users usermeta.Source
	salt  string
}

func NewTransformer(users usermeta.Source, hashSalt string) *Transformer {
	return &Transformer{users: users, salt: hashSalt}
}

func (t *Transformer) Transform(ctx context.Context, p *publisher.Publisher, event *models.Event) error {
	cfg := p.Transform

	if cfg.IncludeUserMetaData {
		if err := t.attachUsers(ctx, event, cfg.IncludeNullFields); err != nil {
			return err
		}
	}

	if len(cfg.IncludeFields) > 0 {
		include(event, cfg.IncludeFields, cfg.IncludeUserMetaData)
	}

	for _, path := range cfg.ExcludeFields {
		exclude(event, path)
	}

	if cfg.DeIdentified {
		for _, prim := range event.Primitives {
			t.deidentify(prim, cfg.DeIdentifyRemoveFields, cfg.DeIdentifyHashFields)
		}
	}

	if !cfg.IncludeNullFields {
		for _, prim := range event.Primitives {
			models.PruneNil(prim)
		}
	}
	return nil
}

func (t *Transformer) attachUsers(ctx context.Context, event *models.Event, includeNull bool) error {
	if t.users == nil {
		return errors.ErrTransform.WithMessage("user metadata requested but no source configured")
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, prim := range event.Primitives {
		id, _ := prim[models.PrimitiveFieldUserID].(string)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := t.users.UserMetadata(ctx, event.DeploymentID, ids, includeNull)
	if err != nil {
		return errors.ErrTransform.WithCause(err).WithMessage("failed to load user metadata")
	}

	for _, prim := range event.Primitives {
		id, _ := prim[models.PrimitiveFieldUserID].(string)
		if user, ok := users[id]; ok {
			prim[models.PrimitiveFieldUser] = models.CloneMap(user)
		}
	}
	return nil
}

func include(event *models.Event, fields []string, keepUser bool) {
	keep := make(map[string]struct{}, len(fields)+len(defaultIncludedFields)+1)
	for _, f := range defaultIncludedFields {
		keep[f] = struct{}{}
	}
	for _, f := range fields {
		top, _, _ := strings.Cut(f, ".")
		keep[top] = struct{}{}
	}
	if keepUser {
		keep[models.PrimitiveFieldUser] = struct{}{}
	}

	for _, prim := range event.Primitives {
		for k := range prim {
			if _, ok := keep[k]; !ok {
				delete(prim, k)
			}
		}
	}
}

// exclude removes a field path, at most one level deep, from the envelope
// and every primitive.
func exclude(event *models.Event, path string) {
	top, nested, dotted := strings.Cut(path, ".")
	if !dotted {
		event.Omit(top)
	}
	for _, prim := range event.Primitives {
		if !dotted {
			delete(prim, top)
			continue
		}
		if child, ok := asMap(prim[top]); ok {
			delete(child, nested)
		}
	}
}

// deidentify drops remove keys and hashes hash keys at any depth. Dotted
// paths address one nested key only.
func (t *Transformer) deidentify(prim models.Primitive, remove, hash []string) {
	for _, path := range remove {
		if top, nested, dotted := strings.Cut(path, "."); dotted {
			if child, ok := asMap(prim[top]); ok {
				delete(child, nested)
			}
			continue
		}
		walk(prim, func(m map[string]interface{}) { delete(m, path) })
	}

	for _, path := range hash {
		if top, nested, dotted := strings.Cut(path, "."); dotted {
			if child, ok := asMap(prim[top]); ok {
				t.hashKey(child, nested)
			}
			continue
		}
		walk(prim, func(m map[string]interface{}) { t.hashKey(m, path) })
	}
}

func (t *Transformer) hashKey(m map[string]interface{}, key string) {
	v, ok := m[key]
	if !ok || v == nil || v == "" {
		return
	}
	m[key] = t.hash(v)
}

func (t *Transformer) hash(v interface{}) string {
	sum := sha256.Sum256([]byte(t.salt + fmt.Sprint(v)))
	return hex.EncodeToString(sum[:])
}

// walk calls fn on m and on every map nested in it, through maps and lists.
func walk(m map[string]interface{}, fn func(map[string]interface{})) {
	fn(m)
	for _, v := range m {
		walkValue(v, fn)
	}
}

func walkValue(v interface{}, fn func(map[string]interface{})) {
	if child, ok := asMap(v); ok {
		walk(child, fn)
		return
	}
	if list, ok := v.([]interface{}); ok {
		for _, item := range list {
			walkValue(item, fn)
		}
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case models.Primitive:
		return m, true
	}
	return nil, false
}
