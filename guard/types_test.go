package guard

import (
	"testing"
)

func TestDetailsHash_KeyOrderStable(t *testing.T) {
	a, err := DetailsHash(map[string]any{"command": "ls", "cwd": "/tmp", "nested": map[string]any{"x": 1.0, "y": true}})
	if err != nil {
		t.Fatalf("DetailsHash: %v", err)
	}
	b, err := DetailsHash(map[string]any{"nested": map[string]any{"y": true, "x": 1.0}, "cwd": "/tmp", "command": "ls"})
	if err != nil {
		t.Fatalf("DetailsHash: %v", err)
	}
	if a != b || len(a) != 64 {
		t.Fatalf("expected equal 64-char hashes, got %q and %q", a, b)
	}

	c, _ := DetailsHash(map[string]any{"command": "ls -la"})
	if c == a {
		t.Fatal("different details must hash differently")
	}
	if h, _ := DetailsHash(nil); h != "" {
		t.Fatalf("nil details should hash to empty, got %q", h)
	}
}

func TestDetailsHash_Struct(t *testing.T) {
	type detail struct {
		Command string `json:"command"`
	}
	a, err := DetailsHash(detail{Command: "ls"})
	if err != nil {
		t.Fatalf("DetailsHash: %v", err)
	}
	b, _ := DetailsHash(map[string]any{"command": "ls"})
	if a != b {
		t.Fatalf("struct and equivalent map should hash alike: %q vs %q", a, b)
	}
}

func TestDetailsText(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "rm -rf x", "rm -rf x"},
		{"map", map[string]any{"file": "a.go"}, `{"file":"a.go"}`},
		{"number", 3, "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetailsText(tc.in); got != tc.want {
				t.Fatalf("DetailsText(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
