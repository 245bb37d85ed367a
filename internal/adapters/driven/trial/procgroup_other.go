//go:build !unix

package trial

import "os/exec"

// startGroup keeps the default behaviour: cancelling kills the direct child only.
func startGroup(*exec.Cmd) {}

func killGroup(*exec.Cmd) error {
	return nil
}
