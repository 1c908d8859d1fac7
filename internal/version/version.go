package version

// Version is the forecast binary version, set at build time with
// -ldflags "-X github.com/rxtech-lab/argo-forecast/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "main"

// GetVersion returns the current binary version.
func GetVersion() string {
	return Version
}
