package cli

// outputFormat is an enum representing the argument of the --format
// option.
type outputFormat int

// Values for outputFormat.
const (
	// --format=table
	outputFormatTable outputFormat = iota

	// --format=json
	outputFormatJSON

	// --format=yaml
	outputFormatYAML
)

var outputFormatNames = []string{
	outputFormatTable: "table",
	outputFormatJSON:  "json",
	outputFormatYAML:  "yaml",
}

func (f outputFormat) String() string {
	return outputFormatNames[f]
}

// suffixOptions holds the global flags that pick the suffix table.
type suffixOptions struct {
	// --suffixes
	file string

	// --interpreter
	interpreter string

	// --python
	python string

	// --platform, as GOOS/GOARCH
	platform string
}
