package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateTaskEnvelope(env *TaskEnvelope) error {
	if env == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "task envelope cannot be nil",
		}
	}

	if env.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "envelope ID is required",
		}
	}

	return ValidateDispatchTask(&env.Task)
}

func ValidateDispatchTask(task *DispatchTask) error {
	if task.ModuleID == "" {
		return &ValidationError{
			Field:   "moduleId",
			Message: "module ID is required",
		}
	}

	if task.DeploymentID == "" {
		return &ValidationError{
			Field:   "deploymentId",
			Message: "deployment ID is required",
		}
	}

	for i, ref := range task.Refs {
		if ref.ID == "" || ref.Name == "" || ref.UserID == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("primitiveData[%d]", i),
				Message: "primitive reference requires id, name and userId",
			}
		}
	}

	return nil
}
