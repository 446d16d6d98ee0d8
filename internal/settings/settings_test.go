package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

func TestOpenMissingFile(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.Equal(t, "", snap.Proxy())
	assert.False(t, snap.EnvEnabled("ANY"))
	assert.Empty(t, snap.EnvSettings())
}

func TestSettersPersistAndPreserveUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"proxy":"","theme":"dark","environment_settings":{"A":true}}`), 0o644))

	store, err := Open(path)
	require.NoError(t, err)
	before := store.Snapshot()

	require.NoError(t, store.SetProxy("http://proxy.local:3128"))
	require.NoError(t, store.SetEnvEnabled("B", true))
	require.NoError(t, store.SetEnvEnabled("A", false))
	require.NoError(t, store.SetSizePreference(2))

	assert.Equal(t, "", before.Proxy(), "old snapshots are immutable")
	assert.True(t, before.EnvEnabled("A"))

	var doc map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "dark", doc["theme"])
	assert.Equal(t, "http://proxy.local:3128", doc["proxy"])
	assert.Equal(t, map[string]any{"A": false, "B": true}, doc["environment_settings"])
	assert.EqualValues(t, 2, doc["size_preference"])

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, reopened.Snapshot().EnabledKeys())
	assert.Equal(t, 2, reopened.Snapshot().SizePreference())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSetProxyValidation(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	err = store.SetProxy("not a url")
	var verr *pderrors.ValidationError
	require.True(t, errors.As(err, &verr))

	require.NoError(t, store.SetProxy("http://p:8080"))
	require.NoError(t, store.SetProxy("  "))
	assert.Equal(t, "", store.Snapshot().Proxy())
}

func TestOpenRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"proxy": 12`), 0o644))

	_, err := Open(path)
	var perr *pderrors.ParseError
	require.True(t, errors.As(err, &perr))
}

func TestConcurrentWriters(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	keys := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			assert.NoError(t, store.SetEnvEnabled(key, true))
		}(k)
	}
	wg.Wait()

	assert.Equal(t, keys, store.Snapshot().EnabledKeys())
}
