// Package repository owns a corpus on disk: its definition file, the
// annotation and metadata datastores, the in-memory structures and the media
// path resolver.
//
// A Repository holds an exclusive lock on its directory for as long as it is
// open, so at most one process mutates a corpus at a time. Within a process
// a Repository is not safe for concurrent use; callers serialise access.
// Structure changes are written to the datastore first and applied to the
// in-memory structure only when that succeeds.
package repository
