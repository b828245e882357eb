package resource

import "testing"

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k, got, err)
		}
	}
	if _, err := ParseKind("plugin"); err == nil {
		t.Error("ParseKind(plugin) expected error")
	}
}

func TestMarkerFile(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindSkill, "SKILL.md"},
		{KindWorkflow, "WORKFLOW.md"},
		{KindMCP, "mcp.json"},
	}
	for _, tt := range tests {
		if got := tt.kind.MarkerFile(); got != tt.want {
			t.Errorf("%s.MarkerFile() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
