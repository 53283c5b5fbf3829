// Package command carries recording commands between the control plane and
// the agents over the broker.
//
// A command is a JSON object:
//
//	{"meeting_id": "6f1c...", "cmd": "start"}
//
// Agents in one consumer group share the commands topic, and each agent
// handles its messages strictly one at a time.
package command

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/scribe/validation"
)

// Kind names a command.
type Kind string

const (
	Start Kind = "start"
	Stop  Kind = "stop"
	// Cancel is accepted and ignored.
	Cancel Kind = "cancel"
)

type Command struct {
	MeetingID string `json:"meeting_id" validate:"required,max=128,excludesall=/\\"`
	Cmd       Kind   `json:"cmd" validate:"required,oneof=start stop cancel"`
}

// Validate reports INVALID_INPUT for a missing meeting id or an unknown
// command.
func (c Command) Validate() error {
	return validation.Validate(c)
}

// Decode parses and validates a message value.
func Decode(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}
