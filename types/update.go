/*
Package types holds the domain model flowing through the pipeline: parsed
analytics events and the definition updates derived from them.

An Update is the atomic unit of work. Two updates describing the same logical
fact compare equal, which is what every deduplication layer relies on: the
struct is plain comparable data, usable directly as a map key, and Key()
gives a stable byte form for the hashed filter cache.
*/
package types

import (
	"strconv"
)

type UpdateKind uint8

const (
	KindEvent UpdateKind = iota
	KindProperty
	KindEventProperty
)

func (k UpdateKind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindProperty:
		return "property"
	case KindEventProperty:
		return "event_property"
	}
	return "unknown"
}

// Parent scopes a property definition.
type PropertyParent string

const (
	ParentEvent  PropertyParent = "event"
	ParentPerson PropertyParent = "person"
)

// Value type inferred for a property definition. Empty when not inferable.
type PropertyValueType string

const (
	TypeString   PropertyValueType = "String"
	TypeNumeric  PropertyValueType = "Numeric"
	TypeBoolean  PropertyValueType = "Boolean"
	TypeDateTime PropertyValueType = "DateTime"
)

// Update is one proposed fact about an event or property definition.
type Update struct {
	Kind   UpdateKind
	TeamID int64
	// event name; set for event definitions and event-property pairings
	Event string
	// property name; empty for event definitions
	Property string
	// set for property definitions only
	Parent      PropertyParent
	ValueType   PropertyValueType
	IsNumerical bool
}

// Key returns a stable byte form of the update identity for hashing.
func (u Update) Key() []byte {
	key := make([]byte, 0, len(u.Event)+len(u.Property)+len(u.Parent)+16)
	key = append(key, byte(u.Kind))
	key = strconv.AppendInt(key, u.TeamID, 10)
	key = append(key, 0)
	key = append(key, u.Event...)
	key = append(key, 0)
	key = append(key, u.Property...)
	key = append(key, 0)
	key = append(key, u.Parent...)
	return key
}
