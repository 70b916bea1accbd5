// Package access decides which users may run privileged operations such as
// adding characters.
package access

import (
	"slices"
)

// Authorizer reports whether a user is privileged
type Authorizer interface {
	IsPrivileged(userID int64) bool
}

// AllowList grants privileges to a fixed set of user ids
type AllowList struct {
	ids []int64
}

// NewAllowList creates an AllowList from ids. Duplicates are dropped.
func NewAllowList(ids ...int64) *AllowList {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return &AllowList{ids: slices.Compact(sorted)}
}

// IsPrivileged reports whether userID is on the list
func (a *AllowList) IsPrivileged(userID int64) bool {
	if a == nil {
		return false
	}
	_, found := slices.BinarySearch(a.ids, userID)
	return found
}

// IDs returns the privileged user ids in ascending order
func (a *AllowList) IDs() []int64 {
	if a == nil {
		return nil
	}
	return slices.Clone(a.ids)
}

// Func adapts a plain function to Authorizer
type Func func(userID int64) bool

func (f Func) IsPrivileged(userID int64) bool {
	return f(userID)
}
