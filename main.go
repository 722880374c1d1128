/*
 * This file is part of the Go Cesium Point Cloud Tiler distribution (https://github.com/mfbonfigli/gocesiumtiler).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/filter"
	"github.com/ecopia-map/ept_index/internal/octree"
	"github.com/ecopia-map/ept_index/pkg"
	"github.com/ecopia-map/ept_index/pkg/source_manager"
	"github.com/ecopia-map/ept_index/tools"
)

const VERSION = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "ept_index",
		Usage:   "inspect and read EPT point cloud datasets, local or remote",
		Version: VERSION,
		Flags:   tools.GlobalFlags(),
		Before: func(c *cli.Context) error {
			if c.Bool(tools.FlagSilent) {
				tools.DisableLogger()
			} else {
				tools.EnableLogger()
			}
			return tools.SetupLogger(c.Int(tools.FlagVerbosity))
		},
		After: func(c *cli.Context) error {
			glog.Flush()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   tools.CommandInfo,
				Usage:  "print the metadata of one dataset or of every dataset in a folder",
				Flags:  tools.InfoFlags(),
				Action: infoAction,
			},
			{
				Name:   tools.CommandCount,
				Usage:  "print the point count of an octree node",
				Flags:  tools.CountFlags(),
				Action: countAction,
			},
			{
				Name:   tools.CommandTile,
				Usage:  "decode the tile of an octree node",
				Flags:  tools.TileFlags(),
				Action: tileAction,
			},
			{
				Name:   tools.CommandPrefetch,
				Usage:  "read every tile down to a depth, resolving the hierarchy on the way",
				Flags:  tools.PrefetchFlags(),
				Action: prefetchAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

// newSourceManager builds the collaborators of the indexes from the --config file.
func newSourceManager(c *cli.Context, workers int) (source_manager.SourceManager, error) {
	cfg, err := tools.LoadConfig(c.String(tools.FlagConfig))
	if err != nil {
		return nil, err
	}
	opts, err := cfg.IndexOptions()
	if err != nil {
		return nil, err
	}
	if workers > 0 {
		opts.PrefetchWorkers = workers
	}
	return source_manager.NewSourceManager(opts), nil
}

func openIndex(c *cli.Context, manager source_manager.SourceManager, uri string) (*pkg.Index, error) {
	idx := pkg.Open(c.Context, uri, manager)
	if !idx.IsValid() {
		return nil, errors.Wrapf(idx.Error(), "cannot open %s", uri)
	}
	return idx, nil
}

type indexInfo struct {
	URI              string                 `json:"uri"`
	Access           string                 `json:"access"`
	Encoding         string                 `json:"encoding"`
	Points           int64                  `json:"points"`
	Span             int                    `json:"span"`
	Extent           [4]float64             `json:"extent"`
	ZRange           [2]float64             `json:"z_range"`
	Attributes       []string               `json:"attributes"`
	Statistics       bool                   `json:"statistics"`
	HasCrs           bool                   `json:"has_crs"`
	OriginalMetadata map[string]interface{} `json:"original_metadata,omitempty"`
}

func infoAction(c *cli.Context) error {
	indexes, err := tools.NewStandardFileFinder().GetIndexesToOpen(c.String(tools.FlagInput), c.Bool(tools.FlagRecursive))
	if err != nil {
		return err
	}
	if len(indexes) == 0 {
		return errors.Errorf("no %s found in %s", tools.MetadataFileName, c.String(tools.FlagInput))
	}

	manager, err := newSourceManager(c, 0)
	if err != nil {
		return err
	}
	defer manager.Close()

	for i, uri := range indexes {
		tools.LogOutput(fmt.Sprintf("Opening dataset %d/%d", i+1, len(indexes)))
		idx, err := openIndex(c, manager, uri)
		if err != nil {
			return err
		}
		extent := idx.Extent()
		info := indexInfo{
			URI:              idx.URI(),
			Access:           idx.AccessType().String(),
			Encoding:         idx.EncodingKind().String(),
			Points:           idx.PointCount(),
			Span:             idx.Span(),
			Extent:           [4]float64{extent.X.Lo, extent.Y.Lo, extent.X.Hi, extent.Y.Hi},
			ZRange:           [2]float64{idx.ZMin(), idx.ZMax()},
			Attributes:       idx.Attributes().Names(),
			Statistics:       idx.HasStatisticsMetadata(),
			HasCrs:           idx.Crs() != "",
			OriginalMetadata: idx.OriginalMetadata(),
		}
		fmt.Fprintln(c.App.Writer, tools.FmtIndentedJSON(info))
	}
	return nil
}

func countAction(c *cli.Context) error {
	node, err := octree.ParseNodeID(c.String(tools.FlagNode))
	if err != nil {
		return err
	}
	manager, err := newSourceManager(c, 0)
	if err != nil {
		return err
	}
	defer manager.Close()

	idx, err := openIndex(c, manager, c.String(tools.FlagInput))
	if err != nil {
		return err
	}
	count, err := idx.NodePointCount(c.Context, node)
	if err != nil {
		return err
	}
	if count < 0 {
		fmt.Fprintf(c.App.Writer, "%s: not in dataset\n", node)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s: %d points\n", node, count)
	return nil
}

// buildRequest turns the request flags into a tile request against the attributes of idx.
func buildRequest(c *cli.Context, idx *pkg.Index) (pkg.Request, error) {
	var req pkg.Request
	all := idx.Attributes()

	if names := c.StringSlice(tools.FlagAttributes); len(names) > 0 {
		for _, name := range names {
			a, _, ok := all.Find(strings.TrimSpace(name))
			if !ok {
				return req, errors.Errorf("dataset has no attribute %q, available: %s", name, strings.Join(all.Names(), ", "))
			}
			req.Attributes.Push(a)
		}
	}

	if source := c.String(tools.FlagFilter); source != "" {
		expr, err := filter.Parse(source, all)
		if err != nil {
			return req, err
		}
		req.Filter = expr
	}

	if rect := c.Float64Slice(tools.FlagRect); len(rect) > 0 {
		if len(rect) != 4 {
			return req, errors.Errorf("--%s needs 4 values, got %d", tools.FlagRect, len(rect))
		}
		r := r2.RectFromPoints(r2.Point{X: rect[0], Y: rect[1]}, r2.Point{X: rect[2], Y: rect[3]})
		req.FilterRect = &r
	}
	return req, nil
}

func tileAction(c *cli.Context) error {
	node, err := octree.ParseNodeID(c.String(tools.FlagNode))
	if err != nil {
		return err
	}
	manager, err := newSourceManager(c, 0)
	if err != nil {
		return err
	}
	defer manager.Close()

	idx, err := openIndex(c, manager, c.String(tools.FlagInput))
	if err != nil {
		return err
	}
	req, err := buildRequest(c, idx)
	if err != nil {
		return err
	}

	block, err := idx.NodeData(c.Context, node, req)
	if err != nil {
		return err
	}
	if block == nil {
		fmt.Fprintf(c.App.Writer, "%s: no points\n", node)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s: %d points [%s]\n", node, block.PointCount(), block.Attributes())
	printFirstPosition(c, block)

	if output := c.String(tools.FlagOutput); output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0o777); err != nil {
			return err
		}
		if err := os.WriteFile(output, block.Data(), 0o666); err != nil {
			return errors.Wrapf(err, "cannot write %s", output)
		}
		tools.LogOutput("> wrote", output)
	}
	return nil
}

func printFirstPosition(c *cli.Context, block *data.Block) {
	p, err := block.Position(0)
	if err != nil {
		// X, Y or Z not requested
		return
	}
	fmt.Fprintf(c.App.Writer, "first point: %.3f %.3f %.3f\n", p.X, p.Y, p.Z)
}

func prefetchAction(c *cli.Context) error {
	manager, err := newSourceManager(c, c.Int(tools.FlagWorkers))
	if err != nil {
		return err
	}
	defer manager.Close()

	idx, err := openIndex(c, manager, c.String(tools.FlagInput))
	if err != nil {
		return err
	}
	req, err := buildRequest(c, idx)
	if err != nil {
		return err
	}

	result, err := idx.Prefetch(c.Context, c.Int(tools.FlagDepth), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "prefetched %d tiles, %d points\n", result.Tiles, result.Points)
	return nil
}
