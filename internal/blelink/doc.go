// Package blelink abstracts the BLE peripheral/central roles a mesh node
// plays simultaneously: advertising and accepting writes as a peripheral,
// scanning and connecting as a central. Link is the narrow abstraction the
// rest of the mesh transport programs against; SimLink is an in-process
// implementation used by tests and by any host that wants to run a mesh
// of goroutines without real radio hardware.
package blelink
