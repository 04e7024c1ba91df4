package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dmfs/internal/imagestore"
	"github.com/samcharles93/dmfs/internal/logger"
	"github.com/samcharles93/dmfs/pkg/dmfs"
)

type inspectReport struct {
	Path     string          `json:"path"`
	Version  uint32          `json:"version"`
	Size     int             `json:"size"`
	Objects  []inspectObject `json:"objects"`
	Complete bool            `json:"complete"`
	Error    string          `json:"error,omitempty"`

	err error
}

type inspectObject struct {
	Index       int             `json:"index"`
	Type        dmfs.ObjectType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Properties  []string        `json:"properties"`
	Offset      uint64          `json:"offset"`
	Size        uint64          `json:"size"`
	Digest      string          `json:"digest,omitempty"`
}

func inspectCmd() *cli.Command {
	var (
		imagePath  string
		asJSON     bool
		strict     bool
		withDigest bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "List the objects in a DMFS image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "image",
				Aliases:     []string{"i"},
				Usage:       "path to the image",
				Destination: &imagePath,
				Required:    true,
			},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "strict", Usage: "fail if the object list is truncated or corrupt", Destination: &strict},
			&cli.BoolFlag{Name: "digest", Usage: "include BLAKE3 digests of object contents", Destination: &withDigest},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyInspectConfig(cmd, cfg, &strict)

			img, err := dmfs.Open(imagePath)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", imagePath, err)
			}
			defer func() { _ = img.Close() }()

			report := buildReport(imagePath, img, withDigest)
			if !report.Complete {
				if strict {
					return fmt.Errorf("inspect %s: %w", imagePath, report.err)
				}
				log.Warn("object list ended early", "image", imagePath, "objects", len(report.Objects), "error", report.Error)
			}

			w := outWriter(cmd)
			if asJSON {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(data))
				return err
			}
			return printReport(w, report)
		},
	}
}

// buildReport walks the image leniently, recording why the walk stopped.
func buildReport(path string, img *dmfs.Image, withDigest bool) inspectReport {
	report := inspectReport{
		Path:    path,
		Version: img.Version,
		Size:    img.Size(),
		Objects: []inspectObject{},
	}

	it := img.Iter()
	for obj := range it.All() {
		entry := inspectObject{
			Index:       len(report.Objects),
			Type:        obj.Type,
			Name:        obj.Name,
			Description: obj.Description,
			Properties:  obj.Properties,
			Size:        obj.ContentLen(),
		}
		if entry.Properties == nil {
			entry.Properties = []string{}
		}
		if r, ok := obj.Content.(dmfs.Region); ok {
			entry.Offset = r.Start
		}
		if withDigest {
			entry.Digest = imagestore.DigestBytes(obj.Bytes())
		}
		report.Objects = append(report.Objects, entry)
	}

	report.err = it.Err()
	report.Complete = report.err == nil
	if !report.Complete {
		report.Error = report.err.Error()
	}
	return report
}

func printReport(w io.Writer, r inspectReport) error {
	fmt.Fprintf(w, "image:   %s\n", r.Path)
	fmt.Fprintf(w, "version: %d\n", r.Version)
	fmt.Fprintf(w, "size:    %d bytes\n", r.Size)
	fmt.Fprintf(w, "objects: %d\n", len(r.Objects))
	if !r.Complete {
		fmt.Fprintf(w, "warning: %s\n", r.Error)
	}
	if len(r.Objects) == 0 {
		return nil
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "#\tTYPE\tNAME\tSIZE\tOFFSET\tPROPERTIES\tDESCRIPTION"
	hasDigest := len(r.Objects) > 0 && r.Objects[0].Digest != ""
	if hasDigest {
		header += "\tDIGEST"
	}
	fmt.Fprintln(tw, header)
	for _, o := range r.Objects {
		props := strings.Join(o.Properties, ",")
		if props == "" {
			props = "-"
		}
		line := fmt.Sprintf("%d\t%s\t%s\t%d\t%d\t%s\t%s", o.Index, o.Type, o.Name, o.Size, o.Offset, props, o.Description)
		if hasDigest {
			line += "\t" + o.Digest
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}
