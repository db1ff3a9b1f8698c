package models

// PartRecord is one categorized part as reported by the analysis server.
// Field names vary per category and are kept as received.
type PartRecord map[string]any

// CategorizedParts is the finalized result set of an analysis run.
type CategorizedParts struct {
	Capacitors []PartRecord `json:"capacitors" msgpack:"capacitors"`
	Resistors  []PartRecord `json:"resistors" msgpack:"resistors"`
	Others     []PartRecord `json:"others" msgpack:"others"`
	Total      int          `json:"total" msgpack:"total"`
}

// Count returns the number of parts across all categories.
func (c *CategorizedParts) Count() int {
	if c == nil {
		return 0
	}
	return len(c.Capacitors) + len(c.Resistors) + len(c.Others)
}

// Clone returns a copy whose category slices and records are not shared.
func (c *CategorizedParts) Clone() *CategorizedParts {
	if c == nil {
		return nil
	}
	return &CategorizedParts{
		Capacitors: cloneRecords(c.Capacitors),
		Resistors:  cloneRecords(c.Resistors),
		Others:     cloneRecords(c.Others),
		Total:      c.Total,
	}
}

func cloneRecords(in []PartRecord) []PartRecord {
	out := make([]PartRecord, 0, len(in))
	for _, rec := range in {
		cp := make(PartRecord, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}
