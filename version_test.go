package langsys

import (
	"runtime"
	"strings"
	"testing"
)

func TestFullVersion(t *testing.T) {
	saved := GitCommit
	t.Cleanup(func() { GitCommit = saved })

	GitCommit = "1a2b3c4d5e6f"
	if got, want := FullVersion(), Version+"+1a2b3c4"; got != want {
		t.Errorf("FullVersion() = %q, want %q", got, want)
	}

	GitCommit = "abc"
	if got, want := FullVersion(), Version+"+abc"; got != want {
		t.Errorf("FullVersion() = %q, want %q", got, want)
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, Name+"/"+Version+" (") {
		t.Errorf("unexpected prefix: %q", ua)
	}
	if !strings.Contains(ua, runtime.GOOS) {
		t.Errorf("user agent %q should name the platform", ua)
	}
}
