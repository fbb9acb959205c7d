package dispatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/internal/publisher"
	"herald/pkg/errors"
	"herald/pkg/models"
)

func transformEvent() *models.Event {
	return &models.Event{
		ModuleID:     "BloodPressure",
		DeploymentID: "D1",
		DeviceName:   "iOS",
		Primitives: []models.Primitive{{
			"id":             "P1",
			"userId":         "U1",
			"moduleId":       "BloodPressure",
			"createDateTime": "2021-11-09T14:28:37Z",
			"systolicValue":  120,
			"diastolicValue": 80,
			"note":           nil,
			"readings": []interface{}{
				map[string]interface{}{"userId": "U1", "raw": 1},
			},
		}},
	}
}

func withTransform(t publisher.Transform) *publisher.Publisher {
	return &publisher.Publisher{ID: "pub-1", Transform: t}
}

func TestTransformer_IncludeFieldsKeepsDefaults(t *testing.T) {
	tr := NewTransformer(nil, "")
	event := transformEvent()

	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{
		IncludeFields: []string{"systolicValue"},
	}), event))

	prim := event.Primitives[0]
	assert.ElementsMatch(t, []string{"systolicValue", "moduleId", "createDateTime", "userId"}, keys(prim))
}

func TestTransformer_IncludeFieldsKeepsAttachedUser(t *testing.T) {
	users := &fakeUsers{users: map[string]map[string]interface{}{
		"U1": {"id": "U1", "givenName": "Ada"},
	}}
	tr := NewTransformer(users, "")
	event := transformEvent()

	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{
		IncludeUserMetaData: true,
		IncludeFields:       []string{"systolicValue"},
	}), event))

	assert.Equal(t, map[string]interface{}{"id": "U1", "givenName": "Ada"}, event.Primitives[0]["user"])
}

func TestTransformer_UserMetadata(t *testing.T) {
	shared := map[string]interface{}{"id": "U1", "email": "ada@example.com"}
	users := &fakeUsers{users: map[string]map[string]interface{}{"U1": shared}}
	tr := NewTransformer(users, "")

	event := transformEvent()
	event.Primitives = append(event.Primitives, models.Primitive{"userId": "U2"})

	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{
		IncludeUserMetaData: true,
		IncludeNullFields:   true,
		ExcludeFields:       []string{"user.email"},
	}), event))

	assert.True(t, users.includeNull)
	assert.Equal(t, map[string]interface{}{"id": "U1"}, event.Primitives[0]["user"])
	assert.NotContains(t, event.Primitives[1], "user")
	assert.Equal(t, "ada@example.com", shared["email"])
}

func TestTransformer_UserMetadataFailure(t *testing.T) {
	tr := NewTransformer(&fakeUsers{err: stderrors.New("mongo down")}, "")

	err := tr.Transform(context.Background(), withTransform(publisher.Transform{IncludeUserMetaData: true}), transformEvent())
	assert.ErrorIs(t, err, errors.ErrTransform)
}

func TestTransformer_ExcludeFields(t *testing.T) {
	tr := NewTransformer(nil, "")
	event := transformEvent()
	p := withTransform(publisher.Transform{ExcludeFields: []string{"deviceName", "diastolicValue", "readings.raw"}})

	require.NoError(t, tr.Transform(context.Background(), p, event))

	prim := event.Primitives[0]
	assert.NotContains(t, prim, "diastolicValue")
	assert.Contains(t, prim, "systolicValue")

	body, err := json.Marshal(event)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.NotContains(t, wire, "deviceName")
	assert.Equal(t, "D1", wire["deploymentId"])

	before := models.CloneMap(prim)
	require.NoError(t, tr.Transform(context.Background(), p, event))
	assert.Equal(t, before, map[string]interface{}(event.Primitives[0]))
}

func TestTransformer_DeIdentifyRemovesFields(t *testing.T) {
	tr := NewTransformer(nil, "")
	event := &models.Event{Primitives: []models.Primitive{{"userId": "U1", "value": 1}}}

	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{
		DeIdentified:           true,
		DeIdentifyRemoveFields: []string{"userId"},
	}), event))

	assert.Equal(t, models.Primitive{"value": 1}, event.Primitives[0])
}

func TestTransformer_DeIdentifyRemovesNestedFields(t *testing.T) {
	users := &fakeUsers{users: map[string]map[string]interface{}{
		"U1": {"id": "U1", "email": "ada@example.com", "givenName": "Ada"},
	}}
	tr := NewTransformer(users, "")
	event := transformEvent()

	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{
		IncludeUserMetaData:    true,
		DeIdentified:           true,
		DeIdentifyRemoveFields: []string{"userId", "user.email"},
	}), event))

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "ada@example.com")

	prim := event.Primitives[0]
	assert.NotContains(t, prim, "userId")
	readings := prim["readings"].([]interface{})
	assert.NotContains(t, readings[0], "userId")
	assert.Equal(t, map[string]interface{}{"id": "U1", "givenName": "Ada"}, prim["user"])
}

func TestTransformer_DeIdentifyHashIsStable(t *testing.T) {
	tr := NewTransformer(nil, "")
	p := withTransform(publisher.Transform{
		DeIdentified:         true,
		DeIdentifyHashFields: []string{"userId"},
		IncludeNullFields:    true,
	})

	first, second := transformEvent(), transformEvent()
	require.NoError(t, tr.Transform(context.Background(), p, first))
	require.NoError(t, tr.Transform(context.Background(), p, second))

	hashed := first.Primitives[0]["userId"]
	assert.NotEqual(t, "U1", hashed)
	assert.Len(t, hashed, 64)
	assert.Equal(t, hashed, second.Primitives[0]["userId"])
	assert.Equal(t, hashed, first.Primitives[0]["readings"].([]interface{})[0].(map[string]interface{})["userId"])
	assert.Nil(t, first.Primitives[0]["note"])

	salted := transformEvent()
	require.NoError(t, NewTransformer(nil, "pepper").Transform(context.Background(), p, salted))
	assert.NotEqual(t, hashed, salted.Primitives[0]["userId"])
}

func TestTransformer_HashSkipsEmptyValues(t *testing.T) {
	tr := NewTransformer(nil, "")
	event := &models.Event{Primitives: []models.Primitive{{"email": "", "phone": nil}}}

	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{
		DeIdentified:         true,
		IncludeNullFields:    true,
		DeIdentifyHashFields: []string{"email", "phone"},
	}), event))

	assert.Equal(t, models.Primitive{"email": "", "phone": nil}, event.Primitives[0])
}

func TestTransformer_NullPruning(t *testing.T) {
	tr := NewTransformer(nil, "")

	pruned := transformEvent()
	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{}), pruned))
	assert.NotContains(t, pruned.Primitives[0], "note")

	kept := transformEvent()
	require.NoError(t, tr.Transform(context.Background(), withTransform(publisher.Transform{IncludeNullFields: true}), kept))
	assert.Contains(t, kept.Primitives[0], "note")
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
