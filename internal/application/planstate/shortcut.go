package planstate

import "strings"

// Action is the history action bound to a key combination.
type Action string

const (
	ActionNone Action = "none"
	ActionUndo Action = "undo"
	ActionRedo Action = "redo"
)

// KeyEvent is a key press forwarded by an editor client.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrlKey"`
	Meta  bool   `json:"metaKey"`
	Shift bool   `json:"shiftKey"`
}

// ShortcutResult tells the client what the key press did and whether it
// must suppress the browser's default handling.
type ShortcutResult struct {
	Action         Action `json:"action"`
	PreventDefault bool   `json:"preventDefault"`
}

// ResolveShortcut maps Ctrl/Cmd+Z to undo and Ctrl/Cmd+Shift+Z to redo.
// Any other key press resolves to ActionNone.
func ResolveShortcut(ev KeyEvent) ShortcutResult {
	if !(ev.Ctrl || ev.Meta) || !strings.EqualFold(ev.Key, "z") {
		return ShortcutResult{Action: ActionNone}
	}
	if ev.Shift {
		return ShortcutResult{Action: ActionRedo, PreventDefault: true}
	}
	return ShortcutResult{Action: ActionUndo, PreventDefault: true}
}

// Apply resolves a key press and performs the bound action on the store.
func (s *Store) Apply(ev KeyEvent) ShortcutResult {
	res := ResolveShortcut(ev)
	switch res.Action {
	case ActionUndo:
		s.Undo()
	case ActionRedo:
		s.Redo()
	}
	return res
}
