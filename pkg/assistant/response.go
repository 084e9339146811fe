// Package assistant turns structured assistant responses into bus events.
//
// A Response carries the text to speak, an emote and a list of actions.
// Actions form a closed set: every concrete type is declared here and
// Dispatch handles each of them.
package assistant

import (
	"encoding/json"
	"fmt"

	"github.com/gwillem/lamp/pkg/light"
	"github.com/gwillem/lamp/pkg/tracking"
)

// Emote is the expression that accompanies a response.
type Emote int

const (
	EmoteIdle Emote = iota
	EmoteNo
	EmoteYes
	EmoteSad
	EmoteHappy
)

func (e Emote) String() string {
	switch e {
	case EmoteIdle:
		return "idle"
	case EmoteNo:
		return "no"
	case EmoteYes:
		return "yes"
	case EmoteSad:
		return "sad"
	case EmoteHappy:
		return "happy"
	}
	return fmt.Sprintf("emote(%d)", int(e))
}

// Action kinds as they appear in JSON.
const (
	KindLight    = "light"
	KindTracking = "tracking"
)

// Action is one side effect requested by the assistant. The set of
// implementations is closed.
type Action interface {
	Kind() string
	action()
}

// LightAction sets the light brightness.
type LightAction struct {
	Percent light.Percent `json:"percent"`
}

// Kind implements Action.
func (LightAction) Kind() string { return KindLight }
func (LightAction) action()      {}

// TrackingAction switches the tracking mode.
type TrackingAction struct {
	Mode    tracking.Mode     `json:"mode"`
	Subject *tracking.Subject `json:"subject,omitempty"`
}

// Kind implements Action.
func (TrackingAction) Kind() string { return KindTracking }
func (TrackingAction) action()      {}

// Response is a structured assistant reply.
type Response struct {
	Text    string   `json:"text"`
	Emote   Emote    `json:"emote"`
	Actions []Action `json:"-"`
}

type responseJSON struct {
	Text    string            `json:"text"`
	Emote   Emote             `json:"emote"`
	Actions []json.RawMessage `json:"actions,omitempty"`
}

// UnmarshalJSON decodes the actions by their "kind" field and validates
// them. Unknown kinds are an error.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw responseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	actions := make([]Action, 0, len(raw.Actions))
	for i, msg := range raw.Actions {
		a, err := decodeAction(msg)
		if err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	*r = Response{Text: raw.Text, Emote: raw.Emote, Actions: actions}
	return nil
}

// MarshalJSON encodes every action with its "kind" field.
func (r Response) MarshalJSON() ([]byte, error) {
	raw := responseJSON{Text: r.Text, Emote: r.Emote}
	for _, a := range r.Actions {
		msg, err := encodeAction(a)
		if err != nil {
			return nil, err
		}
		raw.Actions = append(raw.Actions, msg)
	}
	return json.Marshal(raw)
}

func decodeAction(msg json.RawMessage) (Action, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return nil, err
	}

	switch head.Kind {
	case KindLight:
		var a LightAction
		if err := json.Unmarshal(msg, &a); err != nil {
			return nil, err
		}
		if err := a.Percent.Validate(); err != nil {
			return nil, err
		}
		return a, nil
	case KindTracking:
		var a TrackingAction
		if err := json.Unmarshal(msg, &a); err != nil {
			return nil, err
		}
		if _, err := tracking.ParseMode(string(a.Mode)); err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown action kind %q", head.Kind)
}

func encodeAction(a Action) (json.RawMessage, error) {
	switch a := a.(type) {
	case LightAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			LightAction
		}{KindLight, a})
	case TrackingAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			TrackingAction
		}{KindTracking, a})
	}
	return nil, fmt.Errorf("unknown action %T", a)
}
