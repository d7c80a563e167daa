package config

import "github.com/Th3T3chn0G1t/Keirmael-Hyper/diag"

// stubHalt swaps diag.Halt for the duration of a test so a call to
// diag.Oops can be observed instead of exiting the test binary.
func stubHalt(flag *bool) func() {
	old := diag.Halt
	diag.Halt = func() { *flag = true }
	return func() { diag.Halt = old }
}
