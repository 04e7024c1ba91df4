package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dmfs/internal/imagestore"
	"github.com/samcharles93/dmfs/internal/logger"
	"github.com/samcharles93/dmfs/internal/packlist"
)

// extractListName is the pack list written alongside extracted objects, so the
// output directory can be packed straight back into an equivalent image.
const extractListName = "manifest.yaml"

func extractCmd() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Write the objects of a DMFS image to a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "image",
				Aliases:  []string{"i"},
				Usage:    "path to the image",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"out", "o"},
				Usage:    "output directory",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "name",
				Usage: "only extract the named object (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			imagePath := cmd.String("image")
			outDir := cmd.String("output")

			store, err := imagestore.Open(imagePath)
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			defer func() { _ = store.Close() }()

			objs := store.Objects()
			if names := cmd.StringSlice("name"); len(names) > 0 {
				objs = objs[:0:0]
				for _, n := range names {
					info, err := store.Lookup(n)
					if err != nil {
						return fmt.Errorf("extract %q: %w", n, err)
					}
					objs = append(objs, info)
				}
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("extract: %w", err)
			}

			list := &packlist.List{Version: store.Version()}
			for _, info := range objs {
				if !filepath.IsLocal(info.Name) {
					return fmt.Errorf("extract: object name %q escapes the output directory", info.Name)
				}
				if info.Name == extractListName {
					return fmt.Errorf("extract: object name %q collides with the pack list", info.Name)
				}
				data, err := store.Content(info.Name)
				if err != nil {
					return fmt.Errorf("extract %q: %w", info.Name, err)
				}
				dst := filepath.Join(outDir, info.Name)
				if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
					return fmt.Errorf("extract %q: %w", info.Name, err)
				}
				if err := os.WriteFile(dst, data, 0o644); err != nil {
					return fmt.Errorf("extract %q: %w", info.Name, err)
				}
				list.Objects = append(list.Objects, packlist.Entry{
					Type:        info.Type,
					Name:        info.Name,
					Description: info.Description,
					Properties:  info.Properties,
					Path:        info.Name,
				})
				log.Debug("extracted object", "name", info.Name, "bytes", len(data))
			}

			if err := list.Save(filepath.Join(outDir, extractListName)); err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			log.Info("extracted image", "image", imagePath, "output", outDir, "objects", len(objs))
			return nil
		},
	}
}
