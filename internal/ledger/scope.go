package ledger

import "strings"

// Scope narrows list queries to one customer or to all of the tenant's data.
// The zero value is All.
type Scope struct {
	customerID string
}

// All returns the unrestricted scope.
func All() Scope { return Scope{} }

// Customer restricts a query to a single customer.
func Customer(id string) Scope { return Scope{customerID: strings.TrimSpace(id)} }

// ScopeFrom maps an optional customer filter to a scope.
func ScopeFrom(customerID string) Scope {
	if strings.TrimSpace(customerID) == "" {
		return All()
	}
	return Customer(customerID)
}

// CustomerID reports the customer restriction, if any.
func (s Scope) CustomerID() (string, bool) {
	return s.customerID, s.customerID != ""
}

func (s Scope) IsAll() bool { return s.customerID == "" }

// Includes reports whether a record owned by customerID falls inside the
// scope. Records without a customer are only visible to All.
func (s Scope) Includes(customerID string) bool {
	return s.IsAll() || s.customerID == customerID
}

func (s Scope) String() string {
	if s.IsAll() {
		return "all"
	}
	return "customer:" + s.customerID
}
