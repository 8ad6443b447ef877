// Package audit records domain events as versions of the people and
// groups they changed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/audit"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/logger"
)

// SystemActor is recorded when no operator is set on the context
const SystemActor = "system"

// envelope keys are stored on the version itself, not in its changes
var envelope = []string{"id", "type", "timestamp", "aggregate_id", "aggregate_type"}

// itemKeys name the changed item of an event, in order of preference
var itemKeys = []string{"new_role_id", "role_id"}

// Recorder is an event handler writing one version per domain event.
// It runs inside the transaction of the mutation, so a failed write
// rolls the mutation back.
type Recorder struct {
	versions audit.VersionRepository
}

// NewRecorder creates a new Recorder
func NewRecorder(versions audit.VersionRepository) *Recorder {
	return &Recorder{versions: versions}
}

// Handle records the event
func (r *Recorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	changes, err := changesOf(event)
	if err != nil {
		return err
	}
	if mutationID := logger.GetMutationID(ctx); mutationID != "" {
		if _, ok := changes["mutation_id"]; !ok {
			changes["mutation_id"] = mutationID
		}
	}

	actor := logger.GetActor(ctx)
	if actor == "" {
		actor = SystemActor
	}
	v := audit.NewVersion(event.AggregateType(), event.AggregateID(), event.EventType(), changes, actor)
	for _, key := range itemKeys {
		if raw, ok := changes[key].(string); ok {
			if id, err := uuid.Parse(raw); err == nil {
				v.ForItem("Role", id)
				break
			}
		}
	}
	v.CreatedAt = event.OccurredAt()
	return r.versions.Save(ctx, v)
}

// EventTypes returns nil; the recorder receives every event
func (r *Recorder) EventTypes() []string {
	return nil
}

func changesOf(event shared.DomainEvent) (map[string]any, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.EventType(), err)
	}
	changes := map[string]any{}
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", event.EventType(), err)
	}
	for _, key := range envelope {
		delete(changes, key)
	}
	return changes, nil
}

var _ shared.EventHandler = (*Recorder)(nil)

// HistoryService reads recorded versions
type HistoryService struct {
	versions audit.VersionRepository
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(versions audit.VersionRepository) *HistoryService {
	return &HistoryService{versions: versions}
}

// PersonHistory returns the versions of a person, oldest first
func (s *HistoryService) PersonHistory(ctx context.Context, personID uuid.UUID) ([]*audit.Version, error) {
	return s.versions.FindByMain(ctx, "Person", personID)
}

// GroupHistory returns the versions of a group, oldest first
func (s *HistoryService) GroupHistory(ctx context.Context, groupID uuid.UUID) ([]*audit.Version, error) {
	return s.versions.FindByMain(ctx, "Group", groupID)
}
