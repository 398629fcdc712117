// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// SystemRAMGB reports total physical memory in whole gigabytes, or 0 when it
// cannot be determined.
func SystemRAMGB() uint64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return kb / (1024 * 1024)
	}
	return 0
}

// MaxModelParamsForRAM estimates the largest local model, in billions of
// parameters, this machine can run. Rule of thumb for Q4 quantization is
// roughly 1 GB per 1B parameters, with ~4 GB reserved for the OS.
func MaxModelParamsForRAM() uint64 {
	ram := SystemRAMGB()
	if ram >= 4 {
		return ram - 4
	}
	return 1
}

// ModelFitsInRAM reports whether a model of the given parameter count is
// expected to run locally. Unknown sizes are assumed to fit.
func ModelFitsInRAM(paramBillions float64) bool {
	if paramBillions <= 0 {
		return true
	}
	if SystemRAMGB() == 0 {
		return true
	}
	return paramBillions <= float64(MaxModelParamsForRAM())
}
