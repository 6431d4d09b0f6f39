package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/thermoship/internal/cliconfig"
	"github.com/bft-labs/thermoship/internal/codec"
	"github.com/bft-labs/thermoship/internal/crypto"
	"github.com/bft-labs/thermoship/internal/domain"
)

func newDecodeCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex-frame>...",
		Short: "Reassemble, decrypt and print a received frame set",
		Long: strings.TrimSpace(`
Decode reverses the broadcast pipeline for one sample. Each argument is one
frame as received (index byte, total byte, payload) in hex; frames may be
given in any order. The key and IV mode must match the sender's.`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}
			key, err := cliconfig.LoadKeyMaterial(*cfg)
			if err != nil {
				return err
			}
			mode, err := crypto.ParseIVMode(cfg.IVMode)
			if err != nil {
				return err
			}
			return decodeFrames(cmd.OutOrStdout(), key, mode, args)
		},
	}
}

// decodeFrames prints the sample carried by the hex-encoded frames.
func decodeFrames(w io.Writer, key domain.KeyMaterial, mode crypto.IVMode, hexFrames []string) error {
	frames := make([]domain.Frame, 0, len(hexFrames))
	for _, h := range hexFrames {
		b, err := hex.DecodeString(strings.TrimSpace(h))
		if err != nil {
			return fmt.Errorf("frame %q: %w", h, err)
		}
		f, err := domain.UnmarshalFrame(b)
		if err != nil {
			return fmt.Errorf("frame %q: %w", h, err)
		}
		frames = append(frames, f)
	}

	msg, err := codec.Reassemble(frames)
	if err != nil {
		return err
	}

	engine := crypto.NewEngine(mode)
	if err := engine.Init(key.Key[:], key.IV[:]); err != nil {
		return err
	}
	plaintext, counter, err := engine.Open(msg)
	if err != nil {
		return err
	}
	sample, err := codec.DecodeSample(plaintext)
	if err != nil {
		return err
	}

	if mode == crypto.IVCounter {
		fmt.Fprintf(w, "counter=%d ", counter)
	}
	fmt.Fprintf(w, "temperature_c=%.2f timestamp_ms=%d\n", sample.TemperatureCelsius, sample.TimestampMS)
	return nil
}
