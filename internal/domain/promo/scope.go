package promo

// ScopeKind selects which product attribute a scope matches against.
type ScopeKind string

const (
	ScopeAll            ScopeKind = "all"
	ScopeParentCategory ScopeKind = "parent-category"
	ScopeCategory       ScopeKind = "category"
	ScopeChildCategory  ScopeKind = "child-category"
	ScopeProduct        ScopeKind = "product"
)

// Scope describes the set of products a campaign or coupon applies to.
// A scope with an unknown kind matches nothing.
type Scope struct {
	Kind    ScopeKind
	Targets []string
}

// Target carries the product attributes a scope can match against. Fields
// that are unknown stay empty and simply never match.
type Target struct {
	ProductID      string
	ParentCategory string
	Category       string
	ChildCategory  string
}

// AllProducts returns a scope matching every product.
func AllProducts() Scope {
	return Scope{Kind: ScopeAll}
}

// ProductScope returns a scope matching the given product IDs.
func ProductScope(ids ...string) Scope {
	return Scope{Kind: ScopeProduct, Targets: ids}
}

// CategoryScope returns a scope matching the given categories.
func CategoryScope(categories ...string) Scope {
	return Scope{Kind: ScopeCategory, Targets: categories}
}

// ParentCategoryScope returns a scope matching the given parent categories.
func ParentCategoryScope(parents ...string) Scope {
	return Scope{Kind: ScopeParentCategory, Targets: parents}
}

// ChildCategoryScope returns a scope matching the given child categories.
func ChildCategoryScope(children ...string) Scope {
	return Scope{Kind: ScopeChildCategory, Targets: children}
}

// Matches reports whether the target falls inside the scope.
func (s Scope) Matches(t Target) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeParentCategory:
		return contains(s.Targets, t.ParentCategory)
	case ScopeCategory:
		return contains(s.Targets, t.Category)
	case ScopeChildCategory:
		return contains(s.Targets, t.ChildCategory)
	case ScopeProduct:
		return contains(s.Targets, t.ProductID)
	default:
		return false
	}
}

func contains(haystack []string, needle string) bool {
	if needle == "" {
		return false
	}
	for _, x := range haystack {
		if x == needle {
			return true
		}
	}
	return false
}
