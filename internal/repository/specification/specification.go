package specification

import "gorm.io/gorm"

// Specification is a composable query predicate. Repositories apply any
// number of them to build a filtered query.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
