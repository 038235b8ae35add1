// Package eventbus is the host application's single owned event bus:
// every cross-component notification (session loss, favorite changes,
// pending-file lifecycle, peer connect/disconnect, unreachable sends)
// flows through one Bus instead of a scatter of ad hoc callbacks or
// global notification-center singletons.
package eventbus
