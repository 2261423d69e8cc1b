package usecase

import "github.com/oklog/ulid/v2"

// newID returns a lexicographically sortable entity id.
func newID() string { return ulid.Make().String() }
