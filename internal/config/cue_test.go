// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"tokenizer"}, "tokenizer"},
		{[]string{"runtimes", "0", "home"}, "runtimes[0].home"},
		{[]string{"nodes", "1", "homes", "12", "runtime"}, "nodes[1].homes[12].runtime"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFormatError_NonCUE(t *testing.T) {
	t.Parallel()

	if formatError(nil, "x.cue") != nil {
		t.Error("formatError(nil) should be nil")
	}
	base := errors.New("disk on fire")
	err := formatError(base, "x.cue")
	if !errors.Is(err, base) || !strings.HasPrefix(err.Error(), "x.cue: ") {
		t.Errorf("formatError() = %v", err)
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := checkFileSize(make([]byte, 10), "small.cue"); err != nil {
		t.Errorf("checkFileSize(small) = %v", err)
	}
	if err := checkFileSize(make([]byte, maxFileSize+1), "big.cue"); err == nil {
		t.Error("checkFileSize(big) should fail")
	}
}
