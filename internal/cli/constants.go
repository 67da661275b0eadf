package cli

const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2

	// keyValueArgs is the number of arguments expected by "config set".
	keyValueArgs = 2
)
