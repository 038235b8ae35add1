// Package timer abstracts wall-clock time behind a small Clock interface,
// the same now-func-as-a-field pattern internal/noise uses for its session
// manager, generalized so the pending-file manager and public pipeline can
// take a VirtualClock in tests instead of sleeping real milliseconds to
// exercise expiry and batching windows.
package timer
