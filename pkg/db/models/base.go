package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert. Postgres would default it,
// the sqlite test databases cannot.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
