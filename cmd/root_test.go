package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nu0ma/dbfixture/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func project(t *testing.T) (string, string) {
	t.Helper()
	return testutil.SQLiteProject(t, testutil.UsersSchema, map[string]string{
		"users.xml": testutil.UsersXML,
		"one_user.xml": `<dataset>
  <users id="2" name="b"/>
</dataset>`,
	})
}

func TestInitCommand(t *testing.T) {
	_, props := project(t)
	out, err := runCLI(t, "init", "--config", props)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Database initialized")
}

func TestInitCommandMissingConfig(t *testing.T) {
	_, err := runCLI(t, "init", "-c", filepath.Join(t.TempDir(), "missing.properties"))
	assert.Error(t, err)
}

func TestLoadCommand(t *testing.T) {
	dir, props := project(t)
	out, err := runCLI(t, "load", "-c", props, filepath.Join(dir, "users.xml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded")
	assert.Contains(t, out, "users")
}

func TestAssertCommand(t *testing.T) {
	dir, props := project(t)
	fixture := filepath.Join(dir, "users.xml")

	out, err := runCLI(t, "assert", "-c", props, "--verbose", "--setup", fixture, fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ All validations passed!")
	assert.Contains(t, out, "✓ Table users: all rows match")
}

func TestAssertCommandFailure(t *testing.T) {
	dir, props := project(t)
	fixture := filepath.Join(dir, "users.xml")

	out, err := runCLI(t, "assert", "-c", props,
		"--setup", fixture,
		"--exec", "DELETE FROM users WHERE id = 1",
		fixture,
	)
	require.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "Validation failed:")
	assert.Contains(t, out, "❌ Table users: expected 2 rows, got 1")

	out, err = runCLI(t, "assert", "-c", props,
		"--setup", fixture,
		"--exec", "DELETE FROM users WHERE id = 1",
		filepath.Join(dir, "one_user.xml"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✅")
}

func TestExportCommand(t *testing.T) {
	dir, props := project(t)
	target := filepath.Join(dir, "exported", "users.yaml")

	out, err := runCLI(t, "export", "-c", props, "--fixture", filepath.Join(dir, "users.xml"), target, "users")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported users")

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(b), "name: a")
}

func TestConfigFromEnvironment(t *testing.T) {
	_, props := project(t)
	t.Setenv("DBFIXTURE_CONFIG", props)
	t.Setenv("DBFIXTURE_LOG_LEVEL", "error")

	out, err := runCLI(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Database initialized")
}

func TestExportCommandNeedsTables(t *testing.T) {
	_, props := project(t)
	_, err := runCLI(t, "export", "-c", props, "out.xml")
	assert.Error(t, err)
}
