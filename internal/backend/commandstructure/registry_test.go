package commandstructure

import (
	"slices"
	"strings"
	"sync"
	"testing"
)

func TestCommandRegistry_Register(t *testing.T) {
	registry := NewCommandRegistry()

	if err := registry.Register("Stub", stubFactory("Stub")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		command string
		factory CommandFactory
	}{
		{"duplicate", "Stub", stubFactory("Stub")},
		{"empty name", "", stubFactory("")},
		{"nil factory", "NilFactory", nil},
	}
	for _, tt := range tests {
		if err := registry.Register(tt.command, tt.factory); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	if !registry.IsRegistered("Stub") || registry.IsRegistered("NilFactory") {
		t.Errorf("unexpected registrations %v", registry.GetRegisteredNames())
	}
}

func TestCommandRegistry_Create(t *testing.T) {
	registry := NewCommandRegistry()
	for _, name := range []string{"Resize", "Convert"} {
		if err := registry.Register(name, stubFactory(name)); err != nil {
			t.Fatalf("failed to register %s: %v", name, err)
		}
	}

	command, err := registry.Create("Resize", map[string]any{"suffix": "-r"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command.Name() != "Resize" {
		t.Errorf("expected Resize, got %s", command.Name())
	}

	_, err = registry.Create("Rotate", nil)
	if err == nil || !strings.Contains(err.Error(), "available: Convert, Resize") {
		t.Errorf("expected unknown command error listing available names, got %v", err)
	}

	if _, err := registry.Create("Resize", map[string]any{"fail": true}); err == nil {
		t.Error("expected factory error to be returned")
	}
}

func TestCommandRegistry_GetRegisteredNames(t *testing.T) {
	registry := NewCommandRegistry()
	if names := registry.GetRegisteredNames(); len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}

	for _, name := range []string{"C", "A", "B"} {
		_ = registry.Register(name, stubFactory(name))
	}
	if names := registry.GetRegisteredNames(); !slices.Equal(names, []string{"A", "B", "C"}) {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestCommandRegistry_ConcurrentUse(t *testing.T) {
	registry := NewCommandRegistry()
	_ = registry.Register("Stub", stubFactory("Stub"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = registry.Create("Stub", nil)
		}()
		go func(i int) {
			defer wg.Done()
			_ = registry.Register(strings.Repeat("x", i+1), stubFactory("x"))
		}(i)
	}
	wg.Wait()

	if got := len(registry.GetRegisteredNames()); got != 9 {
		t.Errorf("expected 9 registered commands, got %d", got)
	}
}
