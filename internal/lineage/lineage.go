package lineage

import (
	"errors"
	"fmt"
)

// ObjectType classifies a catalog relation.
type ObjectType string

// Object types surfaced by the dependency catalog.
const (
	ObjectTable ObjectType = "table"
	ObjectView  ObjectType = "view"
)

// Relation kinds as stored in pg_class.relkind.
const (
	RelKindTable = "r"
	RelKindView  = "v"
)

// ErrUnknownObjectType is returned for object types other than table or view.
var ErrUnknownObjectType = errors.New("unknown object type")

// ObjectTypeFromRelKind maps a pg_class.relkind value to an ObjectType.
func ObjectTypeFromRelKind(relkind string) (ObjectType, error) {
	switch relkind {
	case RelKindTable:
		return ObjectTable, nil
	case RelKindView:
		return ObjectView, nil
	default:
		return "", fmt.Errorf("%w: relkind %q", ErrUnknownObjectType, relkind)
	}
}

// ParseObjectType parses the textual form produced by the catalog query.
func ParseObjectType(s string) (ObjectType, error) {
	switch ObjectType(s) {
	case ObjectTable, ObjectView:
		return ObjectType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownObjectType, s)
	}
}

// Valid reports whether t is a known object type.
func (t ObjectType) Valid() bool {
	return t == ObjectTable || t == ObjectView
}

func (t ObjectType) String() string {
	return string(t)
}

// ObjectRef identifies a database object.
type ObjectRef struct {
	Type   ObjectType `json:"type"`
	Schema string     `json:"schema"`
	Name   string     `json:"name"`
}

// FullName returns the schema-qualified object name.
func (r ObjectRef) FullName() string {
	return r.Schema + "." + r.Name
}

// Validate checks that the reference can be used as a graph node key.
func (r ObjectRef) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownObjectType, string(r.Type))
	}
	if r.Schema == "" {
		return errors.New("object schema is required")
	}
	if r.Name == "" {
		return errors.New("object name is required")
	}
	return nil
}

// DependencyEdge records that TargetName (always a view) depends on
// SourceName.
type DependencyEdge struct {
	SourceType   ObjectType `json:"source_type"`
	SourceSchema string     `json:"source_schema"`
	SourceName   string     `json:"source_name"`
	TargetType   ObjectType `json:"target_type"`
	TargetSchema string     `json:"target_schema"`
	TargetName   string     `json:"target_name"`
}

// Source returns the referenced object.
func (e DependencyEdge) Source() ObjectRef {
	return ObjectRef{Type: e.SourceType, Schema: e.SourceSchema, Name: e.SourceName}
}

// Target returns the dependent object.
func (e DependencyEdge) Target() ObjectRef {
	return ObjectRef{Type: e.TargetType, Schema: e.TargetSchema, Name: e.TargetName}
}

// Validate checks both endpoints.
func (e DependencyEdge) Validate() error {
	if err := e.Source().Validate(); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	if err := e.Target().Validate(); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	return nil
}

// String renders the edge as "schema.name->schema.name".
func (e DependencyEdge) String() string {
	return e.Source().FullName() + "->" + e.Target().FullName()
}
