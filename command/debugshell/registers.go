/*
 * shiresim - Examine/deposit/step/run verbs for the debug shell.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's command/parser/mem_commands.go:
 * a name-keyed register table (regType) driving examine/deposit, adapted
 * from S/370's GPR/FPR/control-register sets to this chip's integer
 * register file, PC, and CSR plane, with the S/370 "address" concept
 * replaced by this chip's ESR physical-address plane.
 */
package debugshell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/etsoc/shiresim/command/command"
	"github.com/etsoc/shiresim/emu/csr"
	"github.com/etsoc/shiresim/emu/hart"
)

// currentHart is the shell's selected hart coordinate; a single debug
// session drives one hart at a time, switched with the "hart" command.
var currentHart = [4]int{0, 0, 0, 0}

var csrNames = map[string]int{
	"fflags": csr.CsrFFlags, "frm": csr.CsrFRM, "fcsr": csr.CsrFCSR,
	"sstatus": csr.CsrSStatus, "sie": csr.CsrSIE, "stvec": csr.CsrSTVec,
	"sscratch": csr.CsrSScratch, "sepc": csr.CsrSEPC, "scause": csr.CsrSCause,
	"stval": csr.CsrSTVal, "sip": csr.CsrSIP, "satp": csr.CsrSATP,
	"mstatus": csr.CsrMStatus, "mie": csr.CsrMIE, "mtvec": csr.CsrMTVec,
	"mscratch": csr.CsrMScratch, "mepc": csr.CsrMEPC, "mcause": csr.CsrMCause,
	"mtval": csr.CsrMTVal, "mip": csr.CsrMIP, "medeleg": csr.CsrMEDeleg,
	"mideleg": csr.CsrMIDeleg, "matp": csr.CsrMATP,
	"mcachecontrol": csr.CsrMCacheControl, "ucachecontrol": csr.CsrUCacheControl,
	"tensormask": csr.CsrTensorMask, "convsize": csr.CsrConvSize,
	"convctrl": csr.CsrConvCtrl, "tensorcoop": csr.CsrTensorCoop,
	"tensorerror": csr.CsrTensorError, "flb": csr.CsrFLB,
	"fcc0": csr.CsrFCC0, "fcc1": csr.CsrFCC1, "gscprogress": csr.CsrGSCProgress,
	"stall": csr.CsrStall, "cacheinvalidate": csr.CsrCacheInvalidate,
	"tensorloada0": csr.CsrTensorLoadA0, "tensorloada1": csr.CsrTensorLoadA1,
	"tensorloadb": csr.CsrTensorLoadB, "tensorstore": csr.CsrTensorStore,
	"tensorfma": csr.CsrTensorFMA, "tensorquant": csr.CsrTensorQuant,
	"tensorreduce": csr.CsrTensorReduce, "tensorwait": csr.CsrTensorWait,
	"validation0": csr.CsrValidation0, "validation1": csr.CsrValidation1,
	"validation2": csr.CsrValidation2, "validation3": csr.CsrValidation3,
}

func selectedHart(tgt *command.Target) (*hart.Hart, error) {
	h := tgt.Sys.HartAt(currentHart[0], currentHart[1], currentHart[2], currentHart[3])
	if h == nil {
		return nil, errors.New("no hart at current coordinate")
	}
	return h, nil
}

func parseXReg(name string) (int, bool) {
	if !strings.HasPrefix(name, "x") {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return n, true
}

func readTarget(tgt *command.Target, name string) (uint64, error) {
	h, err := selectedHart(tgt)
	if err != nil {
		return 0, err
	}
	name = strings.ToLower(name)
	switch {
	case name == "pc":
		return h.PC, nil
	case name == "npc":
		return h.NPC, nil
	case name == "mode":
		return uint64(h.Mode), nil
	}
	if n, ok := parseXReg(name); ok {
		return h.X[n], nil
	}
	if csrNum, ok := csrNames[name]; ok {
		return csr.Get(tgt.Sys.CSRContext(h), csrNum)
	}
	if strings.HasPrefix(name, "0x") {
		addr, err := strconv.ParseUint(name[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid esr address: %s", name)
		}
		return tgt.Sys.ESRRead(addr, nil)
	}
	return 0, errors.New("unknown register or csr: " + name)
}

func writeTarget(tgt *command.Target, name string, value uint64) error {
	h, err := selectedHart(tgt)
	if err != nil {
		return err
	}
	name = strings.ToLower(name)
	switch {
	case name == "pc":
		h.PC = value
		return nil
	case name == "npc":
		h.NPC = value
		return nil
	}
	if n, ok := parseXReg(name); ok {
		h.WriteX(n, value)
		return nil
	}
	if csrNum, ok := csrNames[name]; ok {
		return csr.Set(tgt.Sys.CSRContext(h), csrNum, value)
	}
	if strings.HasPrefix(name, "0x") {
		addr, err := strconv.ParseUint(name[2:], 16, 64)
		if err != nil {
			return fmt.Errorf("invalid esr address: %s", name)
		}
		return tgt.Sys.ESRWrite(addr, value, nil)
	}
	return errors.New("unknown register or csr: " + name)
}

func examine(l *cmdLine, tgt *command.Target) (bool, error) {
	name := l.getWord()
	if name == "" {
		return false, errors.New("examine requires a register, csr, or 0x<esr-address>")
	}
	v, err := readTarget(tgt, name)
	if err != nil {
		return false, err
	}
	fmt.Printf("%s = %#016x\n", name, v)
	return false, nil
}

func deposit(l *cmdLine, tgt *command.Target) (bool, error) {
	name := l.getWord()
	valStr := l.getWord()
	if name == "" || valStr == "" {
		return false, errors.New("deposit requires a register/csr and a value")
	}
	valStr = strings.TrimPrefix(strings.ToLower(valStr), "0x")
	v, err := strconv.ParseUint(valStr, 16, 64)
	if err != nil {
		return false, fmt.Errorf("invalid value: %s", valStr)
	}
	return false, writeTarget(tgt, name, v)
}

func selectHart(l *cmdLine, tgt *command.Target) (bool, error) {
	rest := l.rest()
	fields := strings.Fields(rest)
	if len(fields) != 4 {
		return false, errors.New("hart requires shire neighborhood minion thread")
	}
	var coord [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return false, fmt.Errorf("invalid coordinate: %s", f)
		}
		coord[i] = n
	}
	if tgt.Sys.HartAt(coord[0], coord[1], coord[2], coord[3]) == nil {
		return false, errors.New("no such hart")
	}
	currentHart = coord
	return false, nil
}

func step(l *cmdLine, tgt *command.Target) (bool, error) {
	n := 1
	if word := l.getWord(); word != "" {
		v, err := strconv.Atoi(word)
		if err != nil {
			return false, fmt.Errorf("invalid step count: %s", word)
		}
		n = v
	}
	for i := 0; i < n; i++ {
		tgt.Sch.RunPass()
	}
	return false, nil
}

func run(_ *cmdLine, tgt *command.Target) (bool, error) {
	code := tgt.Sch.Run()
	fmt.Printf("stopped, exit code %d\n", code)
	return false, nil
}

func stopCmd(_ *cmdLine, tgt *command.Target) (bool, error) {
	tgt.Sys.SetEmuDone(true, false)
	return false, nil
}

func show(l *cmdLine, tgt *command.Target) (bool, error) {
	what := strings.ToLower(l.getWord())
	switch what {
	case "hart":
		h, err := selectedHart(tgt)
		if err != nil {
			return false, err
		}
		fmt.Printf("hart %v: pc=%#x mode=%d life=%d sched=%d waiting=%#x\n",
			currentHart, h.PC, h.Mode, h.Life, h.Sched, h.Waiting)
	case "state":
		fmt.Printf("emu_done=%v emu_fail=%v\n", tgt.Sys.GetEmuDone(), tgt.Sys.GetEmuFail())
	default:
		return false, errors.New("show requires: hart, state")
	}
	return false, nil
}

func quit(_ *cmdLine, _ *command.Target) (bool, error) {
	return true, nil
}
