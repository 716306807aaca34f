package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/document/doctest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, doc *document.CanonicalDocument) string {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	out, err := execute(t, "validate", "--strict=true", writeDoc(t, doctest.SampleInvoice()))
	require.NoError(t, err)

	var res document.ProcessingResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, constants.StatusValid, res.Status)

	broken := doctest.SampleInvoice()
	broken.Totals.TotalAmount = doctest.D("2000.00")
	_, err = execute(t, "validate", "--strict=true", writeDoc(t, broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uncertain")

	out, err = execute(t, "validate", "--strict=false", writeDoc(t, broken))
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "uncertain"`)
}

func TestDBHealthCommand_Memory(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	out, err := execute(t, "dbhealth")
	require.NoError(t, err)
	assert.Equal(t, "store health (memory): OK\n", out)
}

func TestProcessCommand_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := execute(t, "process", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "docparser dev\n", out)
}
