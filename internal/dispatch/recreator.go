package dispatch

import (
	"context"
	"fmt"

	"herald/internal/moduleresult"
	"herald/pkg/models"
)

// Recreator rehydrates a dispatch task into a full event.
type Recreator struct {
	store moduleresult.Store
}

func NewRecreator(store moduleresult.Store) *Recreator {
	return &Recreator{store: store}
}

// Recreate loads every referenced primitive. The returned primitives carry
// their type name in _cls and no deployment or submitter ids.
func (r *Recreator) Recreate(ctx context.Context, task models.DispatchTask) (*models.Event, error) {
	event := &models.Event{
		ModuleID:       task.ModuleID,
		DeploymentID:   task.DeploymentID,
		DeviceName:     task.DeviceName,
		ModuleConfigID: task.ModuleConfigID,
		Primitives:     make([]models.Primitive, 0, len(task.Refs)),
	}

	for _, ref := range task.Refs {
		prim, err := r.store.RetrievePrimitive(ctx, ref.UserID, ref.Name, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve primitive %s/%s: %w", ref.Name, ref.ID, err)
		}

		delete(prim, models.PrimitiveFieldDeploymentID)
		delete(prim, models.PrimitiveFieldSubmitterID)
		prim[models.PrimitiveFieldClass] = ref.Name
		if _, ok := prim[models.PrimitiveFieldUserID]; !ok && ref.UserID != "" {
			prim[models.PrimitiveFieldUserID] = ref.UserID
		}

		event.Primitives = append(event.Primitives, prim)
	}
	return event, nil
}
