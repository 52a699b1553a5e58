package tools

import (
	"context"
	"errors"
	"testing"
)

type stubExecutor struct {
	out map[string]any
	err error
}

func (s stubExecutor) Execute(context.Context, map[string]any) (map[string]any, error) {
	return s.out, s.err
}

func TestKindFromName(t *testing.T) {
	for _, name := range []string{"weather", "crop_advisory", "pest_alert", "schemes_search", "profile_lookup"} {
		k, err := KindFromName(name)
		if err != nil {
			t.Errorf("KindFromName(%q) error: %v", name, err)
		}
		if k.String() != name {
			t.Errorf("round trip %q -> %s", name, k)
		}
	}

	if _, err := KindFromName("delete_database"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("unknown name error = %v, want ErrUnknownTool", err)
	}
}

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()
	r.Register(KindWeather, stubExecutor{out: map[string]any{"temp_c": 31.0}})

	out, err := r.Call(context.Background(), "weather", map[string]any{"location": "Akola"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out["temp_c"] != 31.0 {
		t.Errorf("out = %v", out)
	}
}

func TestRegistry_Call_UnknownName(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Call(context.Background(), "rm_rf", nil); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", err)
	}
}

func TestRegistry_Call_KnownButUnconfigured(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Call(context.Background(), "weather", nil); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool for unconfigured kind", err)
	}
}

func TestRegistry_Specs_SkipsUnserved(t *testing.T) {
	r := NewRegistry()
	r.Register(KindWeather, stubExecutor{})
	r.Register(KindPestAlert, stubExecutor{})

	specs := r.Specs([]string{"pest_alert", "weather", "schemes_search", "bogus"})
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	if specs[0].Name != "pest_alert" || specs[1].Name != "weather" {
		t.Errorf("order not preserved: %s, %s", specs[0].Name, specs[1].Name)
	}
}
