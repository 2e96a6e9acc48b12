package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.String(); got != "glint dev\n" {
		t.Fatalf("version output = %q, want %q", got, "glint dev\n")
	}
}

func TestScanRequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan", "-e", "error"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "accepts 1 arg") {
		t.Fatalf("Execute error = %v, want arg count error", err)
	}
}

func TestPersistentFlagsMatchConfigKeys(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"rg", "pcre2", "timeout", "factor", "details", "log-level", "log-file"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Fatalf("missing persistent flag --%s", name)
		}
	}
}
