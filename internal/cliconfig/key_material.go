package cliconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/bft-labs/thermoship/internal/domain"
)

// LoadKeyMaterial resolves the AES key and IV from key-hex/iv-hex or, when
// both are empty, from key-file. The key file holds two hex lines, key then
// IV; blank lines and lines starting with '#' are skipped.
func LoadKeyMaterial(cfg Config) (domain.KeyMaterial, error) {
	if cfg.KeyHex != "" || cfg.IVHex != "" {
		if cfg.KeyHex == "" || cfg.IVHex == "" {
			return domain.KeyMaterial{}, fmt.Errorf("%w: key-hex and iv-hex must be set together", domain.ErrInvalidKeyMaterial)
		}
		return domain.ParseKeyMaterial(cfg.KeyHex, cfg.IVHex)
	}

	if cfg.KeyFile == "" {
		return domain.KeyMaterial{}, fmt.Errorf("%w: no key configured (set key-hex/iv-hex or key-file)", domain.ErrInvalidKeyMaterial)
	}

	b, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return domain.KeyMaterial{}, fmt.Errorf("read key file: %w", err)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		return domain.KeyMaterial{}, fmt.Errorf("%w: key file %s must hold 2 hex lines, found %d",
			domain.ErrInvalidKeyMaterial, cfg.KeyFile, len(lines))
	}
	return domain.ParseKeyMaterial(lines[0], lines[1])
}
