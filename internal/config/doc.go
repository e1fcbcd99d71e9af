// Package config defines the format-agnostic pipeline model and the Loader
// interface that fills it.
//
// The Model is the single source of truth for building the task registry,
// the watch rules, the dev server settings and the active profile. Concrete
// loaders, such as the HCL one, live in separate packages.
package config
