package openapi

import (
	"strings"
	"testing"
)

func TestSpecEmbedded(t *testing.T) {
	spec := Spec()
	if len(spec) == 0 {
		t.Fatal("embedded spec is empty")
	}
	doc := string(spec)
	for _, path := range []string{"/submit", "/download", "/counter", "/debug/reset_counter", "/healthz"} {
		if !strings.Contains(doc, path+":") {
			t.Fatalf("spec missing path %s", path)
		}
	}
}

func TestSpecReturnsCopy(t *testing.T) {
	a := Spec()
	a[0] = '#'
	if b := Spec(); b[0] == '#' {
		t.Fatal("Spec returned shared backing array")
	}
}
