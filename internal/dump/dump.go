package dump

import "context"

type (
	// Dumper exports the primary datastore into a directory and
	// applies a previously exported directory back onto the live
	// datastore. The dump wire format belongs to the datastore's own
	// tooling; this interface only invokes it.
	Dumper interface {
		// Dump exports the datastore into destDir.
		Dump(ctx context.Context, destDir string) error

		// Apply replaces the live datastore contents with the dump in
		// srcDir. Destructive and irreversible; callers are expected
		// to have taken a fresh backup first.
		Apply(ctx context.Context, srcDir string) error
	}
)
