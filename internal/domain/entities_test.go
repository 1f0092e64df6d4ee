package domain

import "testing"

func TestMatchResultDataURL(t *testing.T) {
	m := MatchResult{Artifact: []byte("hi"), ArtifactType: "image/png"}
	if got := m.DataURL(); got != "data:image/png;base64,aGk=" {
		t.Errorf("unexpected data URL: %s", got)
	}

	m.ArtifactType = ""
	if got := m.DataURL(); got != "data:application/octet-stream;base64,aGk=" {
		t.Errorf("expected octet-stream fallback, got %s", got)
	}
}
