package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dmfs/internal/imagestore"
	"github.com/samcharles93/dmfs/internal/logger"
	"github.com/samcharles93/dmfs/internal/server"
)

func serveCmd() *cli.Command {
	var (
		imagePath   string
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the objects of a DMFS image over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "image",
				Aliases:     []string{"i"},
				Usage:       "path to the image",
				Destination: &imagePath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, cfg, &addr)

			store, err := imagestore.Open(imagePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			srv := server.New(store, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			srv.Register(e)

			log.Info("starting server",
				"address", addr,
				"image", imagePath,
				"objects", store.Len(),
				"instance", srv.ID(),
			)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(s *http.Server) error {
					s.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
