package cli

// Default values for CLI output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// DefaultArchiveFormat is used by archive create when neither --format nor the
	// file extension names one.
	DefaultArchiveFormat = "gztar"
)
