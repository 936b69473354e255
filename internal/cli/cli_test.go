package cli

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "studyforgectl version") {
		t.Fatalf("output = %q, want it to mention studyforgectl version", out)
	}
}

func TestIngestRequiresAtLeastOneFile(t *testing.T) {
	if _, err := execute(t, "ingest"); err == nil {
		t.Fatalf("expected an error when no files are given")
	}
}

func TestDocumentsListRunsAgainstTheDefaultMockBackend(t *testing.T) {
	t.Setenv("PROVIDER_TYPE", "mock")
	t.Setenv("VECTOR_STORE_TYPE", "memory")

	out, err := execute(t, "documents", "list")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "No documents ingested.") {
		t.Fatalf("output = %q, want the empty-state message", out)
	}
}

func TestDocumentsListJSONOutputsAnEmptyArray(t *testing.T) {
	t.Setenv("PROVIDER_TYPE", "mock")
	t.Setenv("VECTOR_STORE_TYPE", "memory")

	out, err := execute(t, "documents", "list", "--json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(strings.TrimSpace(out), "[]") {
		t.Fatalf("output = %q, want an empty JSON array", out)
	}
}
