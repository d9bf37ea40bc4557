package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("BS_SET", "hello")
	t.Setenv("BS_EMPTY", "")
	t.Setenv("BS_HOST", "hooks.example.com")
	t.Setenv("BS_TOKEN", "secret")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set", input: "value: ${BS_SET}", want: "value: hello"},
		{name: "unset", input: "value: ${BS_UNSET_12345}", want: "value: "},
		{name: "fallback when unset", input: "${BS_UNSET_12345:-strict}", want: "strict"},
		{name: "fallback ignored when set", input: "${BS_SET:-strict}", want: "hello"},
		{name: "fallback when empty", input: "${BS_EMPTY:-buffered}", want: "buffered"},
		{name: "empty fallback", input: "[${BS_UNSET_12345:-}]", want: "[]"},
		{name: "multiple", input: "${BS_SET}:${BS_HOST}", want: "hello:hooks.example.com"},
		{name: "escaped dollar", input: "cost: $${BS_SET}", want: "cost: ${BS_SET}"},
		{name: "bare dollar untouched", input: "price $5 and $BS_SET", want: "price $5 and $BS_SET"},
		{name: "no refs", input: "no variables here", want: "no variables here"},
		{
			name:  "yaml document",
			input: "adapter:\n  url: https://${BS_HOST}/boltstream\n  headers:\n    Authorization: Bearer ${BS_TOKEN}",
			want:  "adapter:\n  url: https://hooks.example.com/boltstream\n  headers:\n    Authorization: Bearer secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
