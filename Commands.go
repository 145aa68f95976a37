package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/samuelfneumann/curiogrid/config"
	"github.com/samuelfneumann/curiogrid/environment/gridworld"
	"github.com/samuelfneumann/curiogrid/experiment"
	"github.com/samuelfneumann/curiogrid/plotting"
	"github.com/samuelfneumann/curiogrid/stats"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

func trainCommand() *cobra.Command {
	var configPath string
	var opts runOptions
	var episodes int
	var seed uint64
	var useICM, usePlanner, useWorldModel bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a PPO agent on a risk gridworld",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Default()
			if configPath != "" {
				var err error
				if c, err = config.Load(configPath); err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("episodes") {
				c.NumEpisodes = episodes
			}
			if flags.Changed("seed") {
				c.Seed = seed
			}
			if flags.Changed("icm") {
				c.UseICM = useICM
			}
			if flags.Changed("planner") {
				c.UsePlanner = usePlanner
			}
			if flags.Changed("world-model") {
				c.UseWorldModel = useWorldModel
			}
			if err := c.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res, err := runTraining(c, opts, out)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "run %v: %d episodes, success rate %v\n",
				res.id, res.metrics.Len(),
				aurora.Green(fmt.Sprintf("%.3f", res.metrics.SuccessRate())))
			fmt.Fprintf(out, "outputs written to %v\n", res.dir)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "JSON or YAML configuration file")
	flags.StringVar(&opts.outDir, "out", "results", "output directory")
	flags.IntVar(&episodes, "episodes", 0, "override the number of episodes")
	flags.Uint64Var(&seed, "seed", 0, "override the run seed")
	flags.BoolVar(&useICM, "icm", false, "override use_icm")
	flags.BoolVar(&usePlanner, "planner", false, "override use_planner")
	flags.BoolVar(&useWorldModel, "world-model", false,
		"override use_world_model")
	flags.IntVar(&opts.checkpointEvery, "checkpoint-every", 0,
		"save the policy every n episodes, 0 to disable")
	flags.IntVar(&opts.window, "window", 10,
		"moving average window of the learning curve")
	flags.BoolVar(&opts.progress, "progress", true, "display a progress bar")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output")
	return cmd
}

func compareCommand() *cobra.Command {
	var metric, plotPath string
	var alpha float64
	var window int

	cmd := &cobra.Command{
		Use:   "compare BASELINE METHOD...",
		Short: "Compare saved metrics of several runs against a baseline",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			series := make([][]float64, len(args))
			named := make(map[string][]float64, len(args))
			for i, path := range args {
				m, err := experiment.LoadMetrics(path)
				if err != nil {
					return err
				}
				if series[i], err = m.Sequence(metric); err != nil {
					return err
				}
				name := runName(path, i)
				if _, ok := named[name]; ok {
					name = fmt.Sprintf("%v_%d", name, i)
				}
				named[name] = series[i]
			}

			out := cmd.OutOrStdout()
			comp, err := stats.CompareToBaseline(series[0], series[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Welch ANOVA on %v: F(%.2f, %.2f) = %.4f, "+
				"p = %.4g\n", metric, comp.ANOVA.DF1, comp.ANOVA.DF2,
				comp.ANOVA.F, comp.ANOVA.P)

			for i, t := range comp.Tests {
				line := fmt.Sprintf("%v vs %v: t = %.4f, df = %.2f, p = %.4g, "+
					"adjusted p = %.4g", runName(args[i+1], i+1),
					runName(args[0], 0), t.T, t.DF, t.P, comp.Adjusted[i])
				if comp.Significant(i, alpha) {
					fmt.Fprintln(out, aurora.Green(line))
				} else {
					fmt.Fprintln(out, aurora.Red(line))
				}
			}

			if equalLengths(series) {
				chi2, p, err := stats.Friedman(series...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Friedman: chi2 = %.4f, p = %.4g\n", chi2, p)
			}

			if plotPath != "" {
				err := plotting.LearningCurves(plotPath, metric, named, window)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&metric, "metric", "rewards",
		"metric to compare, one of "+strings.Join(experiment.MetricNames, ", "))
	flags.Float64Var(&alpha, "alpha", 0.05, "significance level")
	flags.StringVar(&plotPath, "plot", "", "save learning curves to this file")
	flags.IntVar(&window, "window", 10, "moving average window of the plot")
	return cmd
}

func renderCommand() *cobra.Command {
	var mapPath, out string
	var size, cellPixels int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a risk gridworld map to an image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var m gridworld.Map
			var err error
			if mapPath != "" {
				m, err = gridworld.LoadMap(mapPath)
			} else {
				m, err = generateMap(size, seed)
			}
			if err != nil {
				return err
			}

			env, _, err := gridworld.NewFromMap(m, gridworld.DefaultConfig(),
				seed)
			if err != nil {
				return err
			}
			if err := env.Render(out, cellPixels); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), env)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mapPath, "map", "", "map file, a new map if empty")
	flags.StringVar(&out, "out", "grid.png", "output image")
	flags.IntVar(&size, "size", 8, "size of a new map")
	flags.IntVar(&cellPixels, "cell", 48, "pixels per cell")
	flags.Uint64Var(&seed, "seed", 0, "seed of a new map")
	return cmd
}

func genmapCommand() *cobra.Command {
	var size int
	var seed uint64
	var out string

	cmd := &cobra.Command{
		Use:   "genmap",
		Short: "Generate a random risk gridworld map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := generateMap(size, seed)
			if err != nil {
				return err
			}
			if err := m.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "map written to %v\n", out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&size, "size", 8, "number of rows and columns")
	flags.Uint64Var(&seed, "seed", 0, "seed of the map")
	flags.StringVar(&out, "out", "map.gob", "output file")
	return cmd
}

func generateMap(size int, seed uint64) (gridworld.Map, error) {
	if size < 1 {
		return gridworld.Map{}, fmt.Errorf("map size must be positive, "+
			"got %d", size)
	}
	return gridworld.GenerateMap(size, rand.NewSource(seed)), nil
}

// runName names a run by its directory, falling back to its position
func runName(path string, i int) string {
	name := filepath.Base(filepath.Dir(path))
	if name == "." || name == string(filepath.Separator) {
		return fmt.Sprintf("run%d", i)
	}
	return name
}

func equalLengths(series [][]float64) bool {
	for _, s := range series[1:] {
		if len(s) != len(series[0]) {
			return false
		}
	}
	return true
}
