package domain

// Row is one data row of a tab. Index is the 1-based sheet row number
// (the header occupies row 1), used to address updates.
type Row struct {
	Index  int               `json:"index"`
	Values map[string]string `json:"values"`
}

// Table is a tab as read from the data source.
type Table struct {
	Name   string   `json:"name"`
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// Get returns the raw value stored under label, or "" when absent.
func (r Row) Get(label string) string {
	if r.Values == nil {
		return ""
	}
	return r.Values[label]
}
