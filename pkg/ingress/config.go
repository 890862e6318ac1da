package ingress

// Config holds the recognized modules.api_ingress keys from spec.md §4.6/§6.
//
// enable_docs defaults to true here, diverging from the Rust
// original's serde default of false — spec.md §4.6 fixes the default
// at true; see SPEC_FULL.md's resolved divergences.
type Config struct {
	BindAddr           string `json:"bind_addr"`
	EnableDocs         bool   `json:"enable_docs"`
	CORSEnabled        bool   `json:"cors_enabled"`
	RequestTimeoutSecs int    `json:"request_timeout_secs"`
	MaxRequestSizeMB   int    `json:"max_request_size_mb"`
}

// DefaultConfig returns the spec-mandated defaults. Callers should
// start from this and then let modkit.ModuleCtx.Config overlay any
// user-supplied values, the way the teacher's httpserver module
// registers its defaults before loading config so explicit
// configuration always wins but absent fields keep sane values.
func DefaultConfig() Config {
	return Config{
		BindAddr:           "127.0.0.1:8087",
		EnableDocs:         true,
		CORSEnabled:        false,
		RequestTimeoutSecs: 30,
		MaxRequestSizeMB:   16,
	}
}
