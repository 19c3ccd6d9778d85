package domain

const (
	ResourceProducts   = "products"
	ResourceWarehouses = "warehouses"

	// Auth collections. The elevated collection is tried first on login.
	CollectionSuperusers = "_superusers"
	CollectionUsers      = "users"
)

// serverManagedFields are written by the store on every record and must never
// be echoed back on create/update.
var serverManagedFields = []string{
	"created",
	"updated",
	"collectionId",
	"collectionName",
	"expand",
}

// ResourceDescriptor is the static per-resource knowledge the query layer
// needs: which fields are relations (exact-match in filters), which expansion
// to request, and which fields to strip before a write.
type ResourceDescriptor struct {
	Name string

	// RelationFields hold ids of other records; filters on them always use
	// exact match.
	RelationFields []string

	// Expand names the relation(s) the store should inline on reads.
	Expand string

	// DerivedFields are never client-authored and are dropped on write, even
	// on update.
	DerivedFields []string

	// FileField, if set, names the single file-typed field of the resource.
	FileField string
}

func (d ResourceDescriptor) IsRelation(field string) bool {
	for _, f := range d.RelationFields {
		if f == field {
			return true
		}
	}
	return false
}

// StripFields is the full set of fields removed by sanitization.
func (d ResourceDescriptor) StripFields() []string {
	out := make([]string, 0, len(serverManagedFields)+len(d.DerivedFields))
	out = append(out, serverManagedFields...)
	out = append(out, d.DerivedFields...)
	return out
}

// Resources enumerates the collections this client administers. The table is
// fixed at compile time; descriptors are never created at runtime.
var Resources = map[string]ResourceDescriptor{
	ResourceProducts: {
		Name:           ResourceProducts,
		RelationFields: []string{"warehouse"},
		Expand:         "warehouse",
		DerivedFields:  []string{"warehouse_name", "products_count"},
		FileField:      "photo",
	},
	ResourceWarehouses: {
		Name:           ResourceWarehouses,
		RelationFields: []string{},
		Expand:         "products",
		DerivedFields:  []string{"products_count", "products_name"},
	},
}

func ResourceFor(name string) (ResourceDescriptor, error) {
	desc, ok := Resources[name]
	if !ok {
		return ResourceDescriptor{}, ErrResourceUnknown
	}
	return desc, nil
}
