package configx

import (
	"context"

	"go.eggybyte.com/clientpool/configx/internal"
	"go.eggybyte.com/clientpool/core/errors"
)

// Source describes a configuration source.
// Implementations must be safe for concurrent use and honor context cancellation.
type Source interface {
	// Load reads the current configuration snapshot.
	Load(ctx context.Context) (map[string]string, error)
}

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix    string // Only variables with this prefix are read; the prefix is stripped
	Lowercase bool   // Convert keys to lowercase
	Uppercase bool   // Convert keys to uppercase
}

// NewEnvSource creates an environment variable configuration source.
func NewEnvSource(opts EnvOptions) Source {
	return internal.NewEnvSource(internal.EnvOptions{
		Prefix:    opts.Prefix,
		Lowercase: opts.Lowercase,
		Uppercase: opts.Uppercase,
	})
}

// NewFileSource creates a source backed by a flat YAML file.
// Nested mappings are flattened with "_" and upper-cased keys, so
// `clientpool: {timeout: 5s}` yields CLIENTPOOL_TIMEOUT=5s.
func NewFileSource(path string) Source {
	return internal.NewFileSource(path)
}

// NewMapSource creates a source that always returns a copy of values.
func NewMapSource(values map[string]string) Source {
	return internal.NewMapSource(values)
}

// Merge loads every source in order and merges the snapshots; later sources
// override earlier ones.
//
// Parameters:
//   - ctx: context passed to each source
//   - sources: sources in increasing precedence
//
// Returns:
//   - map[string]string: merged snapshot
//   - error: the first source failure, if any
func Merge(ctx context.Context, sources ...Source) (map[string]string, error) {
	merged := make(map[string]string)
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snapshot, err := src.Load(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.CodeUnavailable, "configx.Merge", err, "source %d", i)
		}
		for k, v := range snapshot {
			merged[k] = v
		}
	}
	return merged, nil
}

// Load merges sources, binds the snapshot into target and validates it.
// target must be a pointer to a struct.
//
// Concurrency:
//   - Safe to call from multiple goroutines with distinct targets
func Load(ctx context.Context, target any, sources ...Source) error {
	const op = "configx.Load"

	snapshot, err := Merge(ctx, sources...)
	if err != nil {
		return err
	}
	if err := internal.BindToStruct(snapshot, target); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, op, err)
	}
	if err := ValidateStruct(nil, target); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, op, err)
	}
	return nil
}
