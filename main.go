/*
 * shiresim - Main process: parse flags, build the System from a config
 * file, load the boot image, and drive the scheduler.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on the teacher's main.go: getopt for CLI flags, a slog logger
 * wired through util/logger, config.LoadConfigFile for the topology/debug
 * config, then handing off to the run loop. core.NewCPU + a master-packet
 * channel + telnet.Start become System + elfload.Load/LoadRaw +
 * runtime.New + emu/monitor, since this chip is single-process and
 * cooperatively scheduled rather than goroutine-per-CPU with a command
 * channel.
 */
package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/etsoc/shiresim/command/command"
	"github.com/etsoc/shiresim/command/debugshell"
	config "github.com/etsoc/shiresim/config/configparser"
	_ "github.com/etsoc/shiresim/config/debugconfig"
	"github.com/etsoc/shiresim/emu/elfload"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/monitor"
	"github.com/etsoc/shiresim/emu/pma"
	"github.com/etsoc/shiresim/emu/runtime"
	"github.com/etsoc/shiresim/emu/system"
	logger "github.com/etsoc/shiresim/util/logger"
)

// Chip topology parsed from config file "SHIRES"/"VARIANT"/"IMAGE"/
// "RAWIMAGE" lines, registered below alongside config/debugconfig's
// subsystem-flag registration.
var (
	shireCount  = 1
	variantName = "etsoc1"
	imagePath   string
	rawImage    string
	rawBase     uint64
	dramSize    uint64 = 256 * 1024 * 1024
)

func init() {
	config.RegisterOption("SHIRES", setShires)
	config.RegisterOption("VARIANT", setVariant)
	config.RegisterOption("IMAGE", setImage)
	config.RegisterModel("RAWIMAGE", config.TypeOptions, setRawImage)
	config.RegisterOption("DRAMSIZE", setDramSize)
}

func setShires(_ uint16, value string, _ []config.Option) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return errors.New("config: SHIRES requires a positive integer, got " + value)
	}
	shireCount = n
	return nil
}

func setVariant(_ uint16, value string, _ []config.Option) error {
	v := strings.ToLower(value)
	if v != "etsoc1" && v != "erbium" {
		return errors.New("config: unknown PMA variant: " + value)
	}
	variantName = v
	return nil
}

func setImage(_ uint16, value string, _ []config.Option) error {
	imagePath = value
	return nil
}

func setRawImage(_ uint16, value string, options []config.Option) error {
	if len(options) < 1 {
		return errors.New("config: RAWIMAGE requires a load address")
	}
	base, err := strconv.ParseUint(options[0].Name, 16, 64)
	if err != nil {
		return errors.New("config: RAWIMAGE address must be hex: " + options[0].Name)
	}
	rawImage = value
	rawBase = base
	return nil
}

// setDramSize parses a "DRAMSIZE <bytes>" config line; the real window
// (pma.DRAMWindowSize) is a 256GiB address-space ceiling, far larger than
// what a host can usefully back with real bytes for functional testing.
func setDramSize(_ uint16, value string, _ []config.Option) error {
	n, err := strconv.ParseUint(value, 0, 64)
	if err != nil || n == 0 || n > pma.DRAMWindowSize {
		return errors.New("config: DRAMSIZE out of range: " + value)
	}
	dramSize = n
	return nil
}

func pmaVariant() pma.Variant {
	if variantName == "erbium" {
		return pma.NewErbium()
	}
	return pma.NewETSOC1()
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "shiresim.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optImage := getopt.StringLong("elf", 'e', "", "ELF image to load (overrides config file IMAGE)")
	optMonitor := getopt.StringLong("monitor", 'm', "", "Debug monitor listen address, e.g. :9000")
	optInteractive := getopt.BoolLong("interactive", 'i', false, "Drop into a local debug shell instead of free-running")
	optHelp := getopt.BoolLong("help", 'h', false, "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		var err error
		logFile, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("creating log file: " + err.Error())
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	log := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, boolPtr(logFile != nil)))
	slog.SetDefault(log)

	log.Info("shiresim started")

	if _, err := os.Stat(*optConfig); err == nil {
		if err := config.LoadConfigFile(*optConfig); err != nil {
			log.Error("loading config file: " + err.Error())
			os.Exit(1)
		}
	} else {
		log.Warn("no config file found at " + *optConfig + ", using defaults")
	}

	if *optImage != "" {
		imagePath = *optImage
	}

	mem := memory.NewMainMemory()
	mem.AddRegion(memory.NewDenseRegion("dram", pma.DRAMBase, dramSize, false))

	sys := system.New(shireCount, pmaVariant(), mem, nil)
	sys.DefaultDRAMSize = dramSize
	sys.ColdReset(0)

	entry := pma.DRAMBase
	switch {
	case imagePath != "":
		img, err := elfload.Load(imagePath, mem)
		if err != nil {
			log.Error("loading image: " + err.Error())
			os.Exit(1)
		}
		entry = img.Entry
	case rawImage != "":
		img, err := elfload.LoadRaw(rawImage, rawBase, mem)
		if err != nil {
			log.Error("loading raw image: " + err.Error())
			os.Exit(1)
		}
		entry = img.Entry
	default:
		log.Warn("no boot image configured (IMAGE/RAWIMAGE), harts will start at DRAM base")
	}
	sys.ConfigResetPC(0, 0, entry)

	sch := runtime.New(sys)
	tgt := &command.Target{Sys: sys, Sch: sch}

	var mon *monitor.Server
	if *optMonitor != "" {
		var err error
		mon, err = monitor.Start(*optMonitor, tgt)
		if err != nil {
			log.Error("starting debug monitor: " + err.Error())
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *optInteractive {
		debugshell.Run(tgt)
	} else {
		done := make(chan int, 1)
		go func() { done <- sch.Run() }()

		select {
		case <-sigChan:
			log.Info("got quit signal")
			sys.SetEmuDone(true, false)
		case code := <-done:
			log.Info("scheduler stopped", "exit_code", code)
		}
	}

	if mon != nil {
		mon.Stop()
	}
	log.Info("shiresim shutting down")
}

func boolPtr(b bool) *bool { return &b }
