// Package pendingfile implements the Pending File Manager: a bounded,
// in-memory queue of inbound file transfers awaiting the user's accept or
// decline. Nothing here ever touches disk — pending files live only in
// memory and are wiped on panic-clear, same as the rest of this module's
// in-flight cryptographic state.
package pendingfile
