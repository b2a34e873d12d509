package types

// OutputFormat selects the artifact serialization.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// Ext returns the file extension for the format, without the dot.
func (f OutputFormat) Ext() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// ExtractionBackend identifies how the marker extraction tool is reached.
type ExtractionBackend string

const (
	BackendLocal     ExtractionBackend = "local"
	BackendContainer ExtractionBackend = "container"
	BackendServer    ExtractionBackend = "server"
)

// ExtractionConfig holds settings for turning a PDF into a block tree.
type ExtractionConfig struct {
	// Backend selects local, container, or server extraction.
	Backend ExtractionBackend `json:"backend" yaml:"backend"`

	// MarkerPath is the marker_single binary used by the local backend.
	MarkerPath string `json:"marker_path" yaml:"marker_path"`

	// MarkerImage is the container image used by the container backend.
	MarkerImage string `json:"marker_image" yaml:"marker_image"`

	// MarkerURL is the base URL of a marker server (e.g. "http://localhost:8001").
	MarkerURL string `json:"marker_url" yaml:"marker_url"`

	// MarkerAPIKey is sent as X-Api-Key to marker servers that require it.
	// Usually loaded from .secrets/marker-api-key.
	MarkerAPIKey string `json:"-" yaml:"-"`

	// TempDir is the parent of per-invocation work directories (default: os.TempDir()).
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	// Preflight validates PDFs with pdfcpu before running the extraction tool.
	Preflight bool `json:"preflight" yaml:"preflight"`
}

// FlattenConfig holds settings for flattening and writing artifacts.
type FlattenConfig struct {
	// OutputDir overrides the default destination (sibling file or {dir}_processed).
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Format selects json or yaml artifacts.
	Format OutputFormat `json:"format" yaml:"format"`

	// KeepHTML retains the raw markup on each flat block.
	KeepHTML bool `json:"keep_html" yaml:"keep_html"`

	// Markdown adds a Markdown rendering of the markup to each flat block.
	Markdown bool `json:"markdown" yaml:"markdown"`

	// ExcludeTypes adds block types to the pruned set.
	ExcludeTypes []string `json:"exclude_types" yaml:"exclude_types"`

	// Strict makes a batch with unprocessed files exit non-zero.
	Strict bool `json:"strict" yaml:"strict"`

	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
}

// IndexConfig holds settings for the block index.
type IndexConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db" yaml:"db"`

	// MaxResults is the default search limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
