// Package build exposes build-time information injected via -ldflags:
//
//	go build -ldflags "-X audiomidi/pkg/build.buildVersion=0.2.0"
//
// Unset fields fall back to development defaults.
package build

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildVersion string
	buildCommit  string
	buildTime    string
)

// Info describes the running binary.
type Info struct {
	Name    string
	Version string
	Commit  string
	Time    string
}

// Get returns the build information with defaults filled in.
func Get() Info {
	info := Info{
		Name:    buildName,
		Version: buildVersion,
		Commit:  buildCommit,
		Time:    buildTime,
	}
	if info.Name == "" {
		info.Name = "audiomidi"
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}
