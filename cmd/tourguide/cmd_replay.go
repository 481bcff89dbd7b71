package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tourguide/pkg/catalog"
	"tourguide/pkg/chunk"
	"tourguide/pkg/config"
	"tourguide/pkg/controller"
	"tourguide/pkg/geo"
	"tourguide/pkg/session"
)

var (
	replayFollow     string
	replayPath       []string
	replayRadius     float64
	replaySeparation float64
)

var replayCmd = &cobra.Command{
	Use:   "replay <catalog.yaml>",
	Short: "Replay a tour catalog and optionally walk one tour",
	Long: `Authors every tour of the catalog into a fresh controller and prints the
overview. With --follow the named tour is followed along the --path points,
printing the navigation output after each one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args[0])
	},
}

func init() {
	def := config.DefaultConfig().Tour
	replayCmd.Flags().StringVar(&replayFollow, "follow", "", "tour id to follow after replay")
	replayCmd.Flags().StringArrayVar(&replayPath, "path", nil, "location x,y to visit while following (repeatable)")
	replayCmd.Flags().Float64Var(&replayRadius, "radius", def.WaypointRadius.Meters(), "waypoint arrival radius")
	replayCmd.Flags().Float64Var(&replaySeparation, "separation", def.WaypointSeparation.Meters(), "minimum waypoint separation")
}

func runReplay(cmd *cobra.Command, path string) error {
	points, err := parsePath(replayPath)
	if err != nil {
		return err
	}
	if len(points) > 0 && replayFollow == "" {
		return fmt.Errorf("--path needs --follow")
	}

	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctrl := controller.New(controller.Params{WaypointRadius: replayRadius, WaypointSeparation: replaySeparation}, logger)
	mgr := session.NewManager(ctrl, nil, logger)

	if err := cat.Replay(cmd.Context(), mgr); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := chunk.Render(out, mgr.Snapshot().Output); err != nil {
		return err
	}
	if replayFollow == "" {
		return nil
	}
	return walk(out, mgr, replayFollow, points)
}

func walk(out io.Writer, mgr *session.Manager, id string, points []geo.Point) error {
	snap, err := mgr.Apply(session.OpFollowTour, func(c *controller.Controller) error {
		return c.FollowTour(id)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nFollowing %s\n", id)
	if err := chunk.Render(out, snap.Output); err != nil {
		return err
	}

	for _, p := range points {
		snap, err := mgr.Apply(session.OpSetLocation, func(c *controller.Controller) error {
			return c.SetLocation(p.X, p.Y)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n@ (%g, %g)\n", p.X, p.Y)
		if err := chunk.Render(out, snap.Output); err != nil {
			return err
		}
	}
	return nil
}

func parsePath(raw []string) ([]geo.Point, error) {
	points := make([]geo.Point, 0, len(raw))
	for _, s := range raw {
		p, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

func parsePoint(s string) (geo.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("invalid point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	return geo.Point{X: x, Y: y}, nil
}
