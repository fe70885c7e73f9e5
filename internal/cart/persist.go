package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Key is the fixed storage key of a client-held cart.
const Key = "cart"

var ErrCartNotFound = errors.New("cart not found")

// SessionKey scopes a server-held cart to its cart id.
func SessionKey(cartID string) string {
	return Key + ":" + cartID
}

type Persister interface {
	Load(ctx context.Context, key string) (*Cart, error)
	Save(ctx context.Context, key string, c *Cart) error
	Delete(ctx context.Context, key string) error
}

type MemoryPersister struct {
	mu    sync.RWMutex
	carts map[string]Cart
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{carts: make(map[string]Cart)}
}

func (m *MemoryPersister) Load(_ context.Context, key string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[key]
	if !ok {
		return nil, ErrCartNotFound
	}
	out := c.Clone()
	return &out, nil
}

func (m *MemoryPersister) Save(_ context.Context, key string, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[key] = c.Clone()
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, key)
	return nil
}

// FilePersister keeps one JSON document per key under dir.
type FilePersister struct {
	dir string
}

func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

func (f *FilePersister) Load(_ context.Context, key string) (*Cart, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cart file: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &c, nil
}

// Save writes to a temp file and renames it so a crash never leaves half a cart.
func (f *FilePersister) Save(_ context.Context, key string, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".cart-*")
	if err != nil {
		return fmt.Errorf("create temp cart file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cart file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cart file: %w", err)
	}
	return nil
}

func (f *FilePersister) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cart file: %w", err)
	}
	return nil
}

func (f *FilePersister) path(key string) string {
	safe := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}
