package fsops

// Deleter abstracts the filesystem calls a removal needs
// Enables fault injection in tests (permission denied, vanished files)
type Deleter interface {
	Exists(path string) (bool, error)
	Remove(path string) error
}
