package main

import (
	"context"
	"io"
	"log"
	"os"

	"dwarfreorg/config"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "ELF file with DWARF debug info",
			Required: true,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "output file path",
			Value:       "-",
			DefaultText: "stdout",
		},
		&cli.StringSliceFlag{
			Name:    "class",
			Aliases: []string{"C"},
			Usage:   "only these structs (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Aliases: []string{"x"},
			Usage:   "skip structs whose name starts with this prefix (repeatable)",
		},
		&cli.StringFlag{
			Name:        "bit-numbering",
			Usage:       "bit offset numbering inside a storage unit: msb or lsb",
			Value:       "msb",
			DefaultText: "msb",
		},
		&cli.BoolFlag{
			Name:  "holes-only",
			Usage: "only print structs that have holes or were changed",
		},
	}
}

func run(c *cli.Context, mode Mode) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if c.IsSet("max-passes") {
		cfg.MaxPasses = c.Int("max-passes")
	}
	if c.IsSet("bit-numbering") {
		cfg.BitNumbering = c.String("bit-numbering")
	}
	if c.IsSet("jobs") {
		cfg.Jobs = c.Int("jobs")
	}
	if c.IsSet("color") {
		cfg.Color = c.String("color")
	}
	if c.IsSet("holes-only") {
		cfg.ShowHolesOnly = c.Bool("holes-only")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	numbering, err := cfg.Numbering()
	if err != nil {
		return err
	}
	switch cfg.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}

	logger := zap.NewNop()
	if c.Bool("verbose") {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logger.Sync()
	}

	out, err := openOutput(c.String("output"))
	if err != nil {
		return err
	}

	opts := Options{
		Mode:          mode,
		Input:         c.String("input"),
		Classes:       c.StringSlice("class"),
		Exclude:       append(cfg.Exclude, c.StringSlice("exclude")...),
		Jobs:          cfg.Jobs,
		MaxPasses:     cfg.MaxPasses,
		Numbering:     numbering,
		ShowSteps:     c.Bool("show-steps"),
		ShowHolesOnly: cfg.ShowHolesOnly,
		Logger:        logger,
	}
	return writeTo(out, func(w io.Writer) error {
		return DwarfHelper(c.Context, opts, w)
	})
}

func main() {
	app := &cli.App{
		Name:  "dwarfreorg",
		Usage: "show struct holes from DWARF debug info and repack the structs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML file with default settings",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every change",
			},
			&cli.StringFlag{
				Name:        "color",
				Usage:       "auto, always or never",
				Value:       "auto",
				DefaultText: "auto",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "compile units processed in parallel, 0 for GOMAXPROCS",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "holes",
				Aliases: []string{"p"},
				Usage:   "print struct layouts with holes and padding",
				Flags:   commonFlags(),
				Action: func(c *cli.Context) error {
					return run(c, ModeHoles)
				},
			},
			{
				Name:    "reorganize",
				Aliases: []string{"r"},
				Usage:   "print the repacked struct layouts",
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "show-steps",
						Usage: "print every move before the final layout",
					},
					&cli.IntFlag{
						Name:        "max-passes",
						Usage:       "upper bound on reorganization passes",
						Value:       1000,
						DefaultText: "1000",
					},
				),
				Action: func(c *cli.Context) error {
					return run(c, ModeReorganize)
				},
			},
		},
	}
	err := app.RunContext(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
