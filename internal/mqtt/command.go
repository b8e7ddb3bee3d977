package mqtt

import (
	"encoding/json"
	"fmt"
)

// Command verbs accepted on the command topic.
const (
	CmdSet    = "set"
	CmdSetAll = "set_all"
	CmdStop   = "stop"
)

// Command is a control request received on the command topic.
//
//	{"cmd":"set","fan":2,"speed":60}
//	{"cmd":"set","fan":2,"speed":60,"target_rpm":3000}
//	{"cmd":"set_all","speed":40}
//	{"cmd":"set_all","speeds":[0,10,20,30,40,50,60,70]}
//	{"cmd":"stop"}
type Command struct {
	Cmd       string  `json:"cmd"`
	Fan       int     `json:"fan"`
	Speed     int     `json:"speed"`
	Speeds    []int   `json:"speeds,omitempty"`
	TargetRPM float64 `json:"target_rpm,omitempty"`
}

// ParseCommand decodes and sanity-checks one command payload. Range
// checking of fan and speed is left to the bank, which owns those
// rules.
func ParseCommand(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return Command{}, fmt.Errorf("parse command: %w", err)
	}
	switch c.Cmd {
	case CmdSet, CmdSetAll, CmdStop:
	default:
		return Command{}, fmt.Errorf("unknown command %q", c.Cmd)
	}
	return c, nil
}
