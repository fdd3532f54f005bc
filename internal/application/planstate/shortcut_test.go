package planstate

import "testing"

func TestResolveShortcut(t *testing.T) {
	tests := []struct {
		name     string
		event    KeyEvent
		expected ShortcutResult
	}{
		{name: "ctrl z", event: KeyEvent{Key: "z", Ctrl: true}, expected: ShortcutResult{Action: ActionUndo, PreventDefault: true}},
		{name: "cmd z", event: KeyEvent{Key: "z", Meta: true}, expected: ShortcutResult{Action: ActionUndo, PreventDefault: true}},
		{name: "ctrl shift z", event: KeyEvent{Key: "Z", Ctrl: true, Shift: true}, expected: ShortcutResult{Action: ActionRedo, PreventDefault: true}},
		{name: "cmd shift z", event: KeyEvent{Key: "z", Meta: true, Shift: true}, expected: ShortcutResult{Action: ActionRedo, PreventDefault: true}},
		{name: "plain z", event: KeyEvent{Key: "z"}, expected: ShortcutResult{Action: ActionNone}},
		{name: "ctrl y", event: KeyEvent{Key: "y", Ctrl: true}, expected: ShortcutResult{Action: ActionNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveShortcut(tt.event); got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestStore_Apply(t *testing.T) {
	store, _ := openTestStore(t)
	store.Commit(withTitle(store.Current(), "edited"))

	res := store.Apply(KeyEvent{Key: "z", Ctrl: true})
	if res.Action != ActionUndo {
		t.Fatalf("expected undo, got %s", res.Action)
	}
	if store.Current().Title == "edited" {
		t.Error("expected undo to be applied")
	}

	store.Apply(KeyEvent{Key: "z", Ctrl: true, Shift: true})
	if store.Current().Title != "edited" {
		t.Error("expected redo to be applied")
	}

	store.Wait()
}
