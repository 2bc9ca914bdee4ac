package storage

import (
	"context"
	"io"
)

type (
	// Entry is one remote object as seen by List.
	Entry struct {
		Key          string
		Size         int64
		LastModified int64
	}

	// Storage is the remote object store the subsystem uploads
	// artifacts to. Treated as at-least-once and eventually durable:
	// a Put may have landed even when the caller saw an error, so
	// deletes and listings are idempotent, and removing an absent key
	// is not an error.
	Storage interface {
		Put(ctx context.Context, key string, r io.Reader, size int64) error
		Get(ctx context.Context, key string) (io.ReadCloser, error)
		List(ctx context.Context, prefix string) ([]Entry, error)
		RemoveMany(ctx context.Context, keys []string) (deleted []string, failed []string, err error)
		Ping(ctx context.Context) error
	}
)
