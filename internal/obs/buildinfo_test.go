package obs

import "testing"

func TestInitBuildInfoIsIdempotent(t *testing.T) {
	// A second call must not attempt to re-register the collector.
	InitBuildInfo("test", "abc123")
	InitBuildInfo("test", "abc123")
}
