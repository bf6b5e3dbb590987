// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"os"
	"os/signal"
	"syscall"
)

// installSignals maps process lifecycle signals onto the session
// lifecycle: terminate signals run the orderly shutdown before the
// default disposition is restored and the signal re-raised, and job
// control (TSTP/CONT) maps to Suspend and Resume. The returned func
// uninstalls the handlers.
func (p *Pipeline) installSignals() func() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP,
		syscall.SIGTSTP, syscall.SIGCONT)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-ch:
				switch sig {
				case syscall.SIGTSTP:
					p.Suspend()
					// Restore the default stop, deliver it, and re-arm
					// for the next cycle once the process continues.
					signal.Reset(syscall.SIGTSTP)
					syscall.Kill(os.Getpid(), syscall.SIGTSTP)
					signal.Notify(ch, syscall.SIGTSTP)
				case syscall.SIGCONT:
					p.Resume()
				default:
					p.Shutdown()
					signal.Reset(sig.(syscall.Signal))
					syscall.Kill(os.Getpid(), sig.(syscall.Signal))
					return
				}
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}
