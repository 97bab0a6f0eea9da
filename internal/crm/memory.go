package crm

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Service. It is safe for concurrent use and is the
// default directory when no CRM URL is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[uuid.UUID]map[string]any
}

var _ Service = (*Memory)(nil)

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{data: map[string]map[uuid.UUID]map[string]any{}}
}

// Retrieve returns a copy of the stored entity, limited to cols when given.
func (m *Memory) Retrieve(ctx context.Context, entityName string, id uuid.UUID, cols ColumnSet) (*Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	attrs, ok := m.data[entityName][id]
	if !ok {
		return nil, ErrNotFound
	}
	e := NewEntity(entityName, id)
	if len(cols) == 0 {
		for k, v := range attrs {
			e.Attributes[k] = v
		}
		return e, nil
	}
	for _, c := range cols {
		if v, ok := attrs[c]; ok {
			e.Attributes[c] = v
		}
	}
	return e, nil
}

// Create stores e, assigning a fresh id when e.ID is nil.
func (m *Memory) Create(ctx context.Context, e *Entity) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.data[e.LogicalName]
	if set == nil {
		set = map[uuid.UUID]map[string]any{}
		m.data[e.LogicalName] = set
	}
	if _, exists := set[id]; exists {
		return uuid.Nil, &APIError{Status: 412, Code: "DuplicateRecord", Message: "a record with matching key values already exists"}
	}
	set[id] = copyAttrs(e.Attributes)
	return id, nil
}

// Update merges e's attributes into the stored entity.
func (m *Memory) Update(ctx context.Context, e *Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs, ok := m.data[e.LogicalName][e.ID]
	if !ok {
		return ErrNotFound
	}
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return nil
}

// Delete removes the entity.
func (m *Memory) Delete(ctx context.Context, entityName string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[entityName][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[entityName], id)
	return nil
}

// Len reports how many entities of entityName are stored.
func (m *Memory) Len(entityName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[entityName])
}

func copyAttrs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
