package config

// Build metadata injected at build time via ldflags.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/dangattringer/rust-rag/internal/config.Version=1.2.3'"
var (
	Version = "dev"
	Commit  = ""
)
