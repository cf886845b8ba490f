// Package removefile deletes well-known cluster configuration files on
// request and reports the outcome in the pcsd exchange format.
package removefile

import (
	"fmt"
	"path/filepath"

	"github.com/juju/errors"

	"pcsd-remove-file/internal/exchange"
	"pcsd-remove-file/internal/fsops"
)

// RemovableFile is a single named file that a request can delete
type RemovableFile interface {
	// Validate rejects malformed requests before anything is touched
	Validate() error
	// FullFileName is the absolute path of the target, stable for the
	// lifetime of the value
	FullFileName() string
	// Process deletes the target and never fails with an error or panic
	Process() exchange.Result
}

// Base carries what every variant shares: the request identity, the path
// cache and the delete-with-result algorithm. Variants embed it and either
// supply a resolver or define their own FullFileName and Bind themselves.
// A Base without a resolver panics in FullFileName.
type Base struct {
	id      string
	action  string
	deleter fsops.Deleter
	self    interface{ FullFileName() string }

	resolve  func() string
	path     string
	resolved bool
	variant  string
}

// NewBase prepares the shared part of a variant. variant names the
// concrete type in the fault raised when resolve is missing.
func NewBase(variant, id, action string, deleter fsops.Deleter, resolve func() string) Base {
	if deleter == nil {
		deleter = fsops.OSDeleter{}
	}
	return Base{
		id:      id,
		action:  action,
		deleter: deleter,
		resolve: resolve,
		variant: variant,
	}
}

// Bind makes Process resolve the target through the embedding variant, so
// a FullFileName defined on the variant wins over the resolver.
func (b *Base) Bind(self RemovableFile) {
	b.self = self
}

func (b *Base) ID() string {
	return b.id
}

func (b *Base) Action() string {
	return b.action
}

// Validate accepts everything
func (b *Base) Validate() error {
	return nil
}

func (b *Base) FullFileName() string {
	if b.resolved {
		return b.path
	}
	if b.resolve == nil {
		variant := b.variant
		if variant == "" {
			variant = fmt.Sprintf("%T", b)
		}
		panic(errors.NotImplementedf("'FullFileName' in %q", variant))
	}
	path := b.resolve()
	if !filepath.IsAbs(path) {
		panic(errors.NotValidf("path %q of %s", path, b.variant))
	}
	b.path = path
	b.resolved = true
	return b.path
}

func (b *Base) target() string {
	if b.self != nil {
		return b.self.FullFileName()
	}
	return b.FullFileName()
}

func (b *Base) Process() (result exchange.Result) {
	path := b.target()

	defer func() {
		if r := recover(); r != nil {
			result = exchange.Unexpected(fmt.Sprint(r))
		}
	}()

	exists, err := b.deleter.Exists(path)
	if err != nil {
		return exchange.Unexpected(err.Error())
	}
	if !exists {
		return exchange.NotFound()
	}
	if err := b.deleter.Remove(path); err != nil {
		return exchange.Unexpected(err.Error())
	}
	return exchange.Deleted()
}
