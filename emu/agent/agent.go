/*
 * shiresim - Agent: identity threaded through every memory/ESR access.
 *
 * Copyright 2026, shiresim contributors
 */

// Package agent defines the Agent interface consulted by memory, MMU, PMA
// and ESR accesses so that privilege and identity checks do not need a back
// pointer to a Hart. The system's own Noagent implements it for accesses
// that originate outside any hart (DMA, ELF load, debug shell).
package agent

import "github.com/etsoc/shiresim/emu/ids"

// Agent identifies who is making a memory or ESR access.
type Agent interface {
	// Priv returns the effective privilege for this access.
	Priv() ids.Privilege
	// ShireIndex returns the agent's owning shire, or -1 if not hart-owned.
	ShireIndex() int
	// IsServiceProcessor reports whether this agent is the I/O shire's
	// service-processor thread (rejected by "local shire" ESR rewrites).
	IsServiceProcessor() bool
	// IsHart reports whether this agent is a running hart (false for
	// Noagent / DMA / debug-shell accesses).
	IsHart() bool
}

// Noagent is the system-level agent used for DMA, ELF loads and debug-shell
// accesses: maximal privilege, no owning shire.
type Noagent struct{}

func (Noagent) Priv() ids.Privilege      { return ids.PrivM }
func (Noagent) ShireIndex() int          { return -1 }
func (Noagent) IsServiceProcessor() bool { return false }
func (Noagent) IsHart() bool             { return false }
