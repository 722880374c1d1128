package tools

import (
	"github.com/urfave/cli/v2"
)

const (
	CommandInfo     = "info"
	CommandCount    = "count"
	CommandTile     = "tile"
	CommandPrefetch = "prefetch"
)

// Flag names shared by the commands.
const (
	FlagConfig     = "config"
	FlagVerbosity  = "verbosity"
	FlagSilent     = "silent"
	FlagInput      = "input"
	FlagRecursive  = "recursive"
	FlagNode       = "node"
	FlagAttributes = "attributes"
	FlagFilter     = "filter"
	FlagRect       = "rect"
	FlagOutput     = "output"
	FlagDepth      = "depth"
	FlagWorkers    = "workers"
)

func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "YAML file with the index options, defaults are used for missing keys",
		},
		&cli.IntFlag{
			Name:    FlagVerbosity,
			Aliases: []string{"V"},
			Value:   0,
			Usage:   "log verbosity, 2 logs every fetched resource",
		},
		&cli.BoolFlag{
			Name:    FlagSilent,
			Aliases: []string{"s"},
			Usage:   "suppress all the non-error messages",
		},
	}
}

func inputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     FlagInput,
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "ept.json of the dataset, a local path or an http(s) URL",
	}
}

func nodeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    FlagNode,
		Aliases: []string{"n"},
		Value:   "0-0-0-0",
		Usage:   "octree node as depth-x-y-z",
	}
}

func InfoFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     FlagInput,
			Aliases:  []string{"i"},
			Required: true,
			Usage:    "ept.json of the dataset, or a folder to search for ept.json files",
		},
		&cli.BoolFlag{
			Name:    FlagRecursive,
			Aliases: []string{"r"},
			Usage:   "search the subfolders of the input folder too",
		},
	}
}

func CountFlags() []cli.Flag {
	return []cli.Flag{inputFlag(), nodeFlag()}
}

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    FlagAttributes,
			Aliases: []string{"a"},
			Usage:   "attributes to decode, all of them when omitted",
		},
		&cli.StringFlag{
			Name:    FlagFilter,
			Aliases: []string{"f"},
			Usage:   "CEL predicate over the point attributes, e.g. 'Classification == 2'",
		},
		&cli.Float64SliceFlag{
			Name:  FlagRect,
			Usage: "xmin,ymin,xmax,ymax rectangle in real world units",
		},
	}
}

func TileFlags() []cli.Flag {
	flags := []cli.Flag{inputFlag(), nodeFlag()}
	flags = append(flags, requestFlags()...)
	return append(flags, &cli.StringFlag{
		Name:    FlagOutput,
		Aliases: []string{"o"},
		Usage:   "file where to write the decoded point records",
	})
}

func PrefetchFlags() []cli.Flag {
	flags := []cli.Flag{
		inputFlag(),
		&cli.IntFlag{
			Name:    FlagDepth,
			Aliases: []string{"d"},
			Value:   3,
			Usage:   "deepest octree level to fetch",
		},
		&cli.IntFlag{
			Name:    FlagWorkers,
			Aliases: []string{"w"},
			Usage:   "number of concurrent tile fetches, the configured value when 0",
		},
	}
	return append(flags, requestFlags()...)
}
