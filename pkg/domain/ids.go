// Package domain holds shared identifier types used across feature packages.
// Typed IDs prevent accidental cross-assignment between entity references.
package domain

import "github.com/google/uuid"

// AgentID identifies a registered agent record.
type AgentID uuid.UUID

// EventID identifies a reputation event.
type EventID uuid.UUID

// NewAgentID returns a random agent ID.
func NewAgentID() AgentID {
	return AgentID(uuid.New())
}

// NewEventID returns a random event ID.
func NewEventID() EventID {
	return EventID(uuid.New())
}

func (id AgentID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id AgentID) String() string {
	return uuid.UUID(id).String()
}

func (id EventID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id EventID) String() string {
	return uuid.UUID(id).String()
}

// ParseAgentID parses the canonical string form of an agent ID.
func ParseAgentID(s string) (AgentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AgentID{}, err
	}
	return AgentID(u), nil
}
