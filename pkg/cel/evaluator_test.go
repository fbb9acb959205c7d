package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/pkg/models"
)

func sampleEvent() *models.Event {
	return &models.Event{
		ModuleID:     "BloodPressure",
		DeploymentID: "D1",
		DeviceName:   "iOS",
		Primitives: []models.Primitive{
			{"_cls": "BloodPressure", "systolicValue": 142, "diastolicValue": 91, "userId": "U1"},
		},
	}
}

func TestValidateCondition(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{"module equality", `moduleId == "BloodPressure"`, false},
		{"membership", `deploymentId in ["D1", "D2"]`, false},
		{"primitive scan", `primitives.exists(p, p["_cls"] == "Weight")`, false},
		{"syntax error", `moduleId ==`, true},
		{"undefined variable", `userId == "U1"`, true},
		{"non-bool result", `moduleId`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateCondition(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateCondition(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"module matches", `moduleId == "BloodPressure"`, true},
		{"device mismatch", `deviceName == "Android"`, false},
		{"threshold on primitive", `primitives.exists(p, p.systolicValue >= 140)`, true},
		{"guarded optional field", `primitives.all(p, !has(p.note) || p.note != "")`, true},
		{"combined", `deploymentId == "D1" && size(primitives) == 1`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateCondition(context.Background(), tt.expr, sampleEvent())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateCondition_CachesPrograms(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := eval.EvaluateCondition(context.Background(), `moduleId != ""`, sampleEvent())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, eval.cached())

	_, err = eval.EvaluateCondition(context.Background(), `moduleId ==`, sampleEvent())
	assert.Error(t, err)
	assert.Equal(t, 1, eval.cached())
}

func TestEvaluateCondition_MissingKeyIsError(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.EvaluateCondition(context.Background(), `primitives[0].missing == 1`, sampleEvent())
	assert.Error(t, err)
}
