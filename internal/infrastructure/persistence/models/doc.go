// Package models contains GORM persistence models that map to database
// tables. They are kept separate from domain aggregates so the domain layer
// stays free of ORM tags; repositories convert between the two with the
// ToDomain and FromDomain helpers.
package models
