/*
 * S370 - Debug options configuration, generalized from per-device/channel
 * debug toggles to this chip's per-subsystem toggles (esr, csr, mmu,
 * tensor, sched, trap).
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package debugconfig

import (
	"errors"
	"strings"

	config "github.com/etsoc/shiresim/config/configparser"
)

// LevelTrace, LevelInfo and LevelError are the three debug levels a
// subsystem can gate messages on (util/debug.Debugf's level argument).
const (
	LevelError = 1 << iota
	LevelInfo
	LevelTrace
)

var levelNames = map[string]int{
	"error": LevelError,
	"info":  LevelInfo,
	"trace": LevelTrace,
}

var subsystems = []string{"esr", "csr", "mmu", "tensor", "sched", "trap"}

var masks = map[string]int{}

func init() {
	config.RegisterModel("DEBUG", config.TypeOptions, setDebug)
}

// Mask returns the accumulated debug mask for subsystem, 0 if never
// registered or enabled.
func Mask(subsystem string) int {
	return masks[strings.ToLower(subsystem)]
}

// setDebug handles "DEBUG <subsystem> <level>[,<level>...]" config lines,
// e.g. "DEBUG esr trace,error" or "DEBUG tensor trace".
func setDebug(_ uint16, subsystem string, options []config.Option) error {
	subsystem = strings.ToLower(subsystem)
	if !knownSubsystem(subsystem) {
		return errors.New("debug: unknown subsystem: " + subsystem)
	}

	for _, opt := range options {
		if err := addLevel(subsystem, opt.Name); err != nil {
			return err
		}
		for _, v := range opt.Value {
			if err := addLevel(subsystem, *v); err != nil {
				return err
			}
		}
	}
	return nil
}

func addLevel(subsystem, name string) error {
	level, ok := levelNames[strings.ToLower(name)]
	if !ok {
		return errors.New("debug: unknown level: " + name)
	}
	masks[subsystem] |= level
	return nil
}

func knownSubsystem(name string) bool {
	for _, s := range subsystems {
		if s == name {
			return true
		}
	}
	return false
}
