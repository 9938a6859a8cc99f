package version

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// String returns the build version.
func String() string {
	if commit == "unknown" {
		return version
	}
	return version + " (" + commit + ")"
}
