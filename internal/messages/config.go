package messages

// Config messages for configuration loading and validation.
const (
	// ConfigMissingFileFmt formats missing config file errors.
	ConfigMissingFileFmt      = "missing config file %s: %w"
	ConfigInvalidConfigFmt    = "invalid config %s: %w"
	ConfigUnrecognizedKeysFmt = "%s: unrecognized keys: %w"
	ConfigRootFmt             = "resolve workspace root: %w"

	ConfigFieldFmt        = "%s: %w"
	ConfigEnumFmt         = "%s: %q must be one of %s"
	ConfigEmptyValueFmt   = "%s must not be empty"
	ConfigUnionTypeFmt    = "%s must be %s, got %T"
	ConfigPatternEntryFmt = "%s[%d] must be a table with pattern and template strings"
	ConfigBoolInputFmt    = "%q is not true or false"
)
