package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notafacil/nfse-api/internal/session"
)

func TestFileHandleStore_CicloCompleto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "import-job")
	store, err := session.NewFileHandleStore(path)
	require.NoError(t, err, "diretórios pais devem ser criados")

	jobID, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, jobID, "sem arquivo não há handle, e não é erro")

	require.NoError(t, store.Save("job-42"))
	jobID, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)

	// Sobrescrita troca o handle inteiro.
	require.NoError(t, store.Save("job-43"))
	jobID, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "job-43", jobID)

	require.NoError(t, store.Clear())
	jobID, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, jobID)

	require.NoError(t, store.Clear(), "limpar duas vezes não é erro")
}

func TestFileHandleStore_EscritaAtomicaNaoDeixaTemporario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "import-job")
	store, err := session.NewFileHandleStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save("job-1"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "o temporário deve ser renomeado, nunca sobrar")
	assert.Equal(t, "import-job", entries[0].Name())
}

func TestFileHandleStore_CaminhoVazioRejeitado(t *testing.T) {
	_, err := session.NewFileHandleStore("")
	require.Error(t, err)
}
