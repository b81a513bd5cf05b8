package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	creds, err := Load(writeFile(t, "username=ops@example.com\npassword='s3cr=t'\n"))
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", creds.Username)
	assert.Equal(t, "s3cr=t", creds.Password)
	assert.NoError(t, creds.Validate())
	assert.NotContains(t, creds.String(), "s3cr=t")
}

func TestLoadSingleQuotedPasswordKeepsSpecialCharacters(t *testing.T) {
	creds, err := Load(writeFile(t, "username=ops\npassword=' p#ss $HOME w0rd '\n"))
	require.NoError(t, err)
	assert.Equal(t, " p#ss $HOME w0rd ", creds.Password)
}

func TestLoadUnquotedPasswordIsRewritten(t *testing.T) {
	creds, err := Load(writeFile(t, "username=ops\npassword= abc #1\n"))
	require.NoError(t, err)
	assert.Equal(t, "abc", creds.Password, "unquoted values lose inline comments and surrounding spaces")
}

func TestLoadMissingPasswordLine(t *testing.T) {
	creds, err := Load(writeFile(t, "username=ops\n"))
	require.NoError(t, err)
	assert.Empty(t, creds.Password)
	assert.ErrorIs(t, creds.Validate(), ErrMissingCredentials)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.conf"))
	assert.Error(t, err)
}
