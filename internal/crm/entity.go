// Package crm provides a small client for the remote customer directory
// (a Dynamics-style CRM) that mirrors locally stored records.
//
// Entities are addressed by logical name and id and carry string-keyed
// attributes. Two Service implementations are provided: Client, which talks
// to an OData Web API over HTTP, and Memory, an in-process directory used for
// local development and tests.
package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the directory has no entity with the
// requested logical name and id.
var ErrNotFound = errors.New("crm: entity not found")

// APIError is a non-404 failure reported by the directory.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("crm: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("crm: %d: %s", e.Status, e.Message)
}

// EntityReference points at another entity, e.g. a contact.
type EntityReference struct {
	LogicalName string
	ID          uuid.UUID
}

// ColumnSet restricts which attributes Retrieve returns. An empty set means
// all columns.
type ColumnSet []string

// Entity is a directory record.
type Entity struct {
	LogicalName string
	ID          uuid.UUID
	Attributes  map[string]any
}

// NewEntity returns an entity with an initialised attribute map.
func NewEntity(logicalName string, id uuid.UUID) *Entity {
	return &Entity{LogicalName: logicalName, ID: id, Attributes: map[string]any{}}
}

// Set assigns an attribute. Values are strings, EntityReference, or
// JSON-compatible scalars.
func (e *Entity) Set(name string, v any) {
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	e.Attributes[name] = v
}

// GetString returns a string attribute, or "" when absent or of another type.
func (e *Entity) GetString(name string) string {
	s, _ := e.Attributes[name].(string)
	return s
}

// Service is the directory contract consumed by the workflow.
type Service interface {
	Retrieve(ctx context.Context, entityName string, id uuid.UUID, cols ColumnSet) (*Entity, error)
	Create(ctx context.Context, e *Entity) (uuid.UUID, error)
	Update(ctx context.Context, e *Entity) error
	Delete(ctx context.Context, entityName string, id uuid.UUID) error
}
