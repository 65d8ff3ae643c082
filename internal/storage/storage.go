// Package storage provides on-device persistence: the SQLite local backend for memory
// entities and the sync queue, and blob stores for serialized indices.
package storage

import "errors"

// ErrNotFound is returned when a requested row or blob does not exist.
var ErrNotFound = errors.New("not found")
