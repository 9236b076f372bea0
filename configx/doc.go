// Package configx loads typed configuration for clientpool programs.
//
// # Overview
//
// configx reads key-value snapshots from one or more sources (environment,
// flat YAML files, in-memory maps), merges them with last-wins semantics,
// binds the result into a struct through env/default tags and validates it
// with go-playground/validator.
//
// # Features
//
//   - Multiple sources with last-wins merge semantics
//   - Type-safe struct binding via env/default tags, including time.Duration
//   - Declarative validation via validate tags
//   - Missing config files are treated as empty
//
// # Usage
//
//	var cfg clientx.Config
//	err := configx.Load(ctx, &cfg,
//		configx.NewFileSource("clientpool.yaml"),
//		configx.NewEnvSource(configx.EnvOptions{}),
//	)
//
// # Layer
//
// configx belongs to Layer 2 (L2) and depends on core.
package configx
