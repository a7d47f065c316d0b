/*
 * shiresim - Debug-shell target: what a command operates on.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's command/command package, whose
 * only job was giving command/parser something to import without a cycle
 * back through emu/core. The device-attach Command interface it defined
 * has no analogue here (§4.1/§6 have no removable media); what survives is
 * the shape, repurposed to carry the two things a debug session drives.
 */
package command

import (
	"github.com/etsoc/shiresim/emu/runtime"
	"github.com/etsoc/shiresim/emu/system"
)

// Target bundles the architectural state (System) with the thing
// stepping it (Scheduler), so debugshell commands can inspect registers,
// step instructions, or read the run/halt reason without each command
// needing its own import of both packages.
type Target struct {
	Sys *system.System
	Sch *runtime.Scheduler
}
