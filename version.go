package poskit

// Version information for the poskit terminal toolkit
const (
	// Version is the current toolkit version
	Version = "development"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
