package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `
baseUrl: https://api.example.com
endpoints:
  login:
    method: POST
    path: /auth/login
    description: Authenticate a user
    paramSchema:
      type: object
      required: [username, password]
      properties:
        username: {type: string}
        password: {type: string}
  getUser:
    method: GET
    path: /users/{id}
    headers:
      Accept: application/json
  ping:
    path: /ping
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", r.BaseURL)

	login, ok := r.Get("login")
	require.True(t, ok)
	assert.Equal(t, "login", login.ID)
	assert.Equal(t, "POST", login.Method)
	assert.Equal(t, "/auth/login", login.Path)
	assert.NotNil(t, login.ParamSchema)

	t.Run("method defaults to GET", func(t *testing.T) {
		ping, ok := r.Get("ping")
		require.True(t, ok)
		assert.Equal(t, "GET", ping.Method)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, ok := r.Get("nope")
		assert.False(t, ok)
	})

	t.Run("ids sorted", func(t *testing.T) {
		assert.Equal(t, []string{"getUser", "login", "ping"}, r.IDs())
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRegistry), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Endpoints, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistry_Validate(t *testing.T) {
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)
	assert.NoError(t, r.Validate())

	bad := &Registry{Endpoints: map[string]Endpoint{"x": {ID: "x", Method: "GET"}}}
	assert.ErrorContains(t, bad.Validate(), "no path")
}

func TestRegistry_MarshalRoundTrip(t *testing.T) {
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	data, err := r.Marshal()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, r.BaseURL, again.BaseURL)
	assert.Equal(t, r.IDs(), again.IDs())
}

func TestValidateParams(t *testing.T) {
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)
	login, _ := r.Get("login")

	t.Run("valid params", func(t *testing.T) {
		violations, err := ValidateParams(login, map[string]any{
			"username": "bob",
			"password": "pw",
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("missing required", func(t *testing.T) {
		violations, err := ValidateParams(login, map[string]any{"username": "bob"})
		require.NoError(t, err)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "password")
	})

	t.Run("wrong type", func(t *testing.T) {
		violations, err := ValidateParams(login, map[string]any{
			"username": 42,
			"password": "pw",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, violations)
	})

	t.Run("no schema accepts anything", func(t *testing.T) {
		ping, _ := r.Get("ping")
		violations, err := ValidateParams(ping, map[string]any{"whatever": true})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})
}
