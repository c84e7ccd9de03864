package templating

// TemplateConfig holds the limits applied by the template functions.
type TemplateConfig struct {
	// DefaultWordLimit is used by passage when a template asks for zero or
	// fewer words.
	DefaultWordLimit int `json:"default_word_limit" yaml:"default_word_limit"`

	// MaxWordLimit caps the length of any passage generated from a template.
	MaxWordLimit int `json:"max_word_limit" yaml:"max_word_limit"`

	// MaxTableKeys caps the number of rows returned by modelTable and modelKeys.
	MaxTableKeys int `json:"max_table_keys" yaml:"max_table_keys"`

	// MaxSuccessors caps the number of successors shown per row by modelTable.
	MaxSuccessors int `json:"max_successors" yaml:"max_successors"`
}

// DefaultConfig returns a TemplateConfig with safe default values.
func DefaultConfig() TemplateConfig {
	return TemplateConfig{
		DefaultWordLimit: 100,
		MaxWordLimit:     1000,
		MaxTableKeys:     500,
		MaxSuccessors:    25,
	}
}
