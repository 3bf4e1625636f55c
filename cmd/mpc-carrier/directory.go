package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/worldcoin/mpc-carrier/carrier"
)

// loadDirectory reads a peer directory file: one "name=port" entry per
// line, blank lines and "#"-prefixed comments ignored. This is
// deliberately the simplest possible format — argument/config parsing is an
// external collaborator per spec.md §1, so this file exists only to make
// the binary runnable, not as a core component.
func loadDirectory(path string) (carrier.Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("directory file: %w", err)
	}
	defer f.Close()

	dir := make(carrier.Directory)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, portStr, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("directory file line %d: expected name=port", lineNo)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("directory file line %d: empty peer name", lineNo)
		}
		port, err := strconv.ParseUint(strings.TrimSpace(portStr), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("directory file line %d: %w", lineNo, err)
		}
		if _, exists := dir[name]; exists {
			return nil, fmt.Errorf("directory file line %d: duplicate peer %q", lineNo, name)
		}
		dir[name] = uint16(port)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("directory file: %w", err)
	}
	return dir, nil
}
