package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileHandleStore persiste o handle do job em um arquivo, com escrita atômica
// (temporário + rename) para nunca deixar um handle truncado no disco.
type FileHandleStore struct {
	path string
}

var _ HandleStore = (*FileHandleStore)(nil)

// NewFileHandleStore cria o store no caminho dado; os diretórios pais são
// criados se necessário.
func NewFileHandleStore(path string) (*FileHandleStore, error) {
	if path == "" {
		return nil, fmt.Errorf("caminho do handle é obrigatório")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("criando diretório do handle: %w", err)
	}
	return &FileHandleStore{path: path}, nil
}

// Save grava o handle de forma atômica.
func (s *FileHandleStore) Save(jobID string) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(jobID+"\n"), 0o644); err != nil {
		return fmt.Errorf("gravando handle: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("publicando handle: %w", err)
	}
	return nil
}

// Load devolve o handle salvo ou "" quando o arquivo não existe.
func (s *FileHandleStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("lendo handle: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear remove o handle; inexistente não é erro.
func (s *FileHandleStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removendo handle: %w", err)
	}
	return nil
}
