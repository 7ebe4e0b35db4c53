package fonts

import "testing"

func TestLoadAcceptsPrefixes(t *testing.T) {
	for _, name := range []string{"goregular", "embed:goregular", "builtin:goitalic", "built-in:gobold", "embed:GoMono.ttf"} {
		data, err := Load(name)
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("Load(%q) returned empty data", name)
		}
	}
}

func TestLoadUnknownFont(t *testing.T) {
	if _, err := Load("embed:comic-sans"); err == nil {
		t.Fatalf("expected error for unknown font")
	}
}

func TestIsBuiltin(t *testing.T) {
	if !IsBuiltin("embed:goregular") || !IsBuiltin("builtin:gobold") {
		t.Fatalf("prefixed sources should be builtin")
	}
	if IsBuiltin("fonts/Inter-Regular.ttf") {
		t.Fatalf("file path should not be builtin")
	}
}
