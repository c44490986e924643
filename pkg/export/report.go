package export

// Field is a labelled scalar printed above the table.
type Field struct {
	Label string
	Value string
}

// Report is a titled document made of summary fields followed by a table.
type Report struct {
	Title   string
	Fields  []Field
	Headers []string
	Rows    [][]string
}

// Renderer turns a report into bytes of a specific format.
type Renderer interface {
	Render(report Report) ([]byte, error)
	ContentType() string
	Extension() string
}
