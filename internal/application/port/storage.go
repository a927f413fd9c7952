package port

import "context"

// FileStorage persists generated artifacts such as order exports
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	GetFullPath(relativePath string) string
}
