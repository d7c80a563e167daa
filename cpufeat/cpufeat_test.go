package cpufeat

import (
	"runtime"
	"testing"
)

func TestLongModeSupportedMatchesArch(t *testing.T) {
	if got, want := LongModeSupported(), runtime.GOARCH == "amd64"; got != want {
		t.Fatalf("LongModeSupported() = %v, want %v", got, want)
	}
}
