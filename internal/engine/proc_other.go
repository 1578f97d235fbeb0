//go:build !unix

package engine

import "os/exec"

func configureProcess(*exec.Cmd) {}
