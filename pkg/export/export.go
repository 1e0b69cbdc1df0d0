package export

// Table defines tabular export content with ordered rows.
type Table struct {
	Headers []string
	Rows    [][]string
}
