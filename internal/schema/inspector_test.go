package schema

import "testing"

func TestValidTableName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"usuarios", true},
		{"_tbl", true},
		{"bad-name", false},
		{"bad name", false},
		{"1bad", false},
	}
	for _, tt := range tests {
		if got := validTableName.MatchString(tt.name); got != tt.want {
			t.Errorf("validTableName.MatchString(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInspector_WarnCallsSink(t *testing.T) {
	var got []string
	i := &Inspector{log: func(msg string) { got = append(got, msg) }}
	i.warn("something happened")
	if len(got) != 1 || got[0] != "WARN something happened" {
		t.Errorf("warn() sink got %v", got)
	}
}

func TestInspector_WarnNilSink(t *testing.T) {
	i := &Inspector{}
	i.warn("should not panic")
}
