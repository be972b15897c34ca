package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/fewshot/blobstore"
)

// Save encodes m and writes it to the blob store under name.
func Save(ctx context.Context, bs blobstore.Store, name string, m *Model, optFns ...func(o *Options)) error {
	data, err := Encode(m, optFns...)
	if err != nil {
		return fmt.Errorf("encode model archive: %w", err)
	}
	if err := bs.Put(ctx, name, data); err != nil {
		return fmt.Errorf("write model archive %q: %w", name, err)
	}
	return nil
}

// Load reads the named archive from the blob store and decodes it.
//
// A missing archive surfaces as blobstore.ErrNotFound (match with
// errors.Is); a malformed one as ErrCorrupt.
func Load(ctx context.Context, bs blobstore.Store, name string, defaults Hyperparams) (*Model, error) {
	data, err := bs.Get(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read model archive %q: %w", name, err)
	}

	m, err := Decode(data, defaults)
	if err != nil {
		return nil, fmt.Errorf("decode model archive %q: %w", name, err)
	}
	return m, nil
}
