package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dmfs/internal/logger"
	"github.com/samcharles93/dmfs/internal/packlist"
)

func packCmd() *cli.Command {
	return &cli.Command{
		Name:  "pack",
		Usage: "Build a DMFS image from a YAML pack list",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "list",
				Aliases:  []string{"l"},
				Usage:    "pack list (YAML) describing the objects to include",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"out", "o"},
				Usage:    "output image path",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "format-version",
				Usage: "image format version to write (1 or 2); overrides the list",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			list, err := packlist.Load(cmd.String("list"))
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			if cmd.IsSet("format-version") {
				list.Version = uint32(cmd.Int("format-version"))
			}

			m, err := list.Build()
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			img, err := m.ToImageVersion(list.Version)
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}

			out := cmd.String("output")
			if err := writeFileAtomic(out, img); err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			log.Info("packed image", "output", out, "version", list.Version, "objects", m.Len(), "bytes", len(img))
			return nil
		},
	}
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place, so a failed pack never leaves a half-written image behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
