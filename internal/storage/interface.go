package storage

// StorageInterface defines the contract for artifact snapshot storage.
// It is a cache, never source of truth: losing it degrades the UX without
// corrupting server state.
type StorageInterface interface {
	Store(filename string, data []byte) error
	Retrieve(filename string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(filename string) error
}
