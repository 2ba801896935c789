package langsys

import (
	"runtime"
	"runtime/debug"
	"sync"
)

const (
	// Name identifies the SDK to the translation service.
	Name = "langsys-go"

	// Description is the one-line summary shown by the CLI.
	Description = "Langsys HTML localization engine for Go"
)

// Build information, set at release time with
//
//	go build -ldflags "-X github.com/ZaguanLabs/langsys.Version=1.0.0 -X github.com/ZaguanLabs/langsys.GitCommit=$(git rev-parse HEAD)"
var (
	Version   = "0.1.0"
	GitCommit = ""
	BuildDate = ""
)

var vcsRevision = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
})

// Commit returns GitCommit, or the VCS revision the toolchain stamped into
// the binary when none was given.
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	return vcsRevision()
}

// FullVersion returns Version with the short commit appended when known,
// e.g. "0.1.0+1a2b3c4".
func FullVersion() string {
	commit := Commit()
	if commit == "" {
		return Version
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return Version + "+" + commit
}

// UserAgent is sent with every request to the translation service.
func UserAgent() string {
	return Name + "/" + Version + " (" + runtime.Version() + "; " + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
