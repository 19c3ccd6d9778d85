package domain

import "strconv"

// Record is a single schemaless document as the store returns it. Values keep
// the types encoding/json assigns: string, float64, bool, []any, map[string]any.
type Record map[string]any

func (r Record) ID() string {
	return r.String("id")
}

func (r Record) String(field string) string {
	v, _ := r[field].(string)
	return v
}

// Number reads a numeric field, accepting both JSON numbers and numeric
// strings (the store returns numbers, spreadsheet rows arrive as strings).
func (r Record) Number(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FileUpload marks a field value as a raw file to be submitted with the
// record. The sanitizer forwards it untouched; the store client turns the
// request into a multipart upload when one is present.
type FileUpload struct {
	Name string
	Data []byte
}

// ResolvedFile is the read-side shape of a file field after the raw filename
// has been resolved against the store's file-serving convention.
type ResolvedFile struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Product is the typed view of a product record used by the aggregate and
// import paths. List/CRUD paths stay on the generic Record.
type Product struct {
	ID           string
	Name         string
	Type         string
	Price        float64
	Quantity     int
	WarehouseRef string
}

func ProductFromRecord(r Record) Product {
	return Product{
		ID:           r.ID(),
		Name:         r.String("name"),
		Type:         r.String("type"),
		Price:        r.Number("price"),
		Quantity:     int(r.Number("quantity")),
		WarehouseRef: r.String("warehouse"),
	}
}

type Warehouse struct {
	ID      string
	Name    string
	Address string
}

func WarehouseFromRecord(r Record) Warehouse {
	return Warehouse{
		ID:      r.ID(),
		Name:    r.String("name"),
		Address: r.String("address"),
	}
}
