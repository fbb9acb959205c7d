// Package storage holds helpers shared by the MongoDB-backed repositories.
package storage

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDFilter matches a document whose _id is either the given string or the
// ObjectID it encodes.
func IDFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// IDsFilter is IDFilter for a set of ids on an arbitrary field.
func IDsFilter(field string, ids []string) bson.M {
	values := make(bson.A, 0, len(ids)*2)
	for _, id := range ids {
		values = append(values, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			values = append(values, oid)
		}
	}
	return bson.M{field: bson.M{"$in": values}}
}

// Normalize converts a decoded document into plain Go values: ObjectIDs
// become hex strings, BSON datetimes become RFC 3339 strings, and nested
// documents and arrays become maps and slices. The Mongo _id key is
// renamed to id.
func Normalize(doc bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == "_id" {
			k = "id"
		}
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bson.M:
		return Normalize(val)
	case map[string]interface{}:
		return Normalize(bson.M(val))
	case bson.D:
		return Normalize(val.Map())
	case bson.A:
		return normalizeSlice(val)
	case []interface{}:
		return normalizeSlice(val)
	default:
		return v
	}
}

func normalizeSlice(in []interface{}) []interface{} {
	out := make([]interface{}, len(in))
	for i, item := range in {
		out[i] = normalizeValue(item)
	}
	return out
}
