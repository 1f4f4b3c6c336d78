package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/mbtree/internal/config"
	"github.com/san-kum/mbtree/internal/sim"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/storage"
	"github.com/san-kum/mbtree/internal/tree"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	preset     string
	useEuler   bool
	save       bool
	target     string
	iterations int

	settings *viper.Viper
	log      *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "mbtree",
		Short:        "articulated rigid-body tree dynamics",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if settings, err = loadSettings(cmd.Flags()); err != nil {
				return err
			}
			log, err = newLogger(settings.GetString(cfgKeyLogLevel))
			return err
		},
	}

	rootCmd.PersistentFlags().String("data", ".mbtree", "data directory")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
	rootCmd.PersistentFlags().Int("workers", 0, "parallel workers per level (1 runs sequentially)")

	realizeCmd := &cobra.Command{
		Use:   "realize [model]",
		Short: "realize a model and print body poses and accelerations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  realizeModel,
	}
	realizeCmd.Flags().StringVar(&target, "stage", "reaction", "stage to realize")
	realizeCmd.Flags().BoolVar(&save, "save", false, "save a snapshot")

	describeCmd := &cobra.Command{
		Use:   "describe [model]",
		Short: "print tree topology and coordinate ranges",
		Args:  cobra.MaximumNArgs(1),
		RunE:  describeModel,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [model]",
		Short: "compare sequential and parallel realization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchModel,
	}
	benchCmd.Flags().IntVar(&iterations, "n", 1000, "evaluations per executor")

	for _, c := range []*cobra.Command{realizeCmd, describeCmd, benchCmd} {
		c.Flags().StringVar(&configFile, "config", "", "model file (yaml)")
		c.Flags().StringVar(&preset, "preset", "", "preset name")
		c.Flags().BoolVar(&useEuler, "euler", false, "use euler angles for ball and free joints")
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models := config.ListModels()
			if len(args) > 0 {
				models = args
			}
			for _, m := range models {
				presets := config.ListPresets(m)
				if len(presets) == 0 {
					fmt.Printf("no presets for model: %s\n", m)
					continue
				}
				fmt.Printf("%s %s\n", titleStyle.Render(m), strings.Join(presets, ", "))
			}
			return nil
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [model] [file]",
		Short: "write a preset as a model file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[:1])
			if err != nil {
				return err
			}
			return config.Save(args[1], cfg)
		},
	}
	dumpCmd.Flags().StringVar(&preset, "preset", "", "preset name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved snapshots",
		RunE:  listSnapshots,
	}

	rootCmd.AddCommand(realizeCmd, describeCmd, benchCmd, presetsCmd, dumpCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(args []string) (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	model := "pendulum"
	if len(args) > 0 {
		model = args[0]
	}
	name := preset
	if name == "" {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			return nil, fmt.Errorf("unknown model: %s (available: %v)", model, config.ListModels())
		}
		name = presets[0]
	}
	cfg := config.GetPreset(model, name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets(model))
	}
	return cfg, nil
}

func loadModel(args []string) (*config.Model, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	m, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	m.Tree.SetLogger(log)
	if useEuler {
		if err := m.Tree.SetUseEulerAngles(m.State, true); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func executor(workers int) tree.Executor {
	if workers == 1 {
		return tree.Sequential{}
	}
	return tree.NewParallel(workers)
}

func newSystem(m *config.Model, exec tree.Executor) (*sim.System, error) {
	eng, err := tree.NewEngine(m.Tree, exec)
	if err != nil {
		return nil, err
	}
	eng.SetLogger(log)
	sys, err := sim.NewSystem(eng, m.Forces, m.Gravity, m.State)
	if err != nil {
		return nil, err
	}
	sys.SetLogger(log)
	return sys, nil
}

func realizeModel(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	want, err := stage.Parse(target)
	if err != nil {
		return err
	}
	m, err := loadModel(args)
	if err != nil {
		return err
	}
	eng, err := tree.NewEngine(m.Tree, executor(settings.GetInt(cfgKeyWorkers)))
	if err != nil {
		return err
	}
	eng.SetLogger(log)

	st := m.State
	if want >= stage.Dynamics {
		if err := eng.Realize(ctx, st, stage.Motion); err != nil {
			return err
		}
		if err := m.Forces.Apply(m.Tree, st); err != nil {
			return err
		}
	}
	if err := eng.Realize(ctx, st, want); err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(m.Name) + " " + labelStyle.Render("realized to "+want.String()))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tBODY\tJOINT\tORIGIN\tQDOT\tUDOT")
	for _, n := range m.Tree.Nodes()[1:] {
		origin, qdot, udot := "-", "-", "-"
		if want >= stage.Configuration {
			p := n.XGB(st).P
			origin = fmt.Sprintf("(%.4f, %.4f, %.4f)", p.X, p.Y, p.Z)
		}
		if want >= stage.Motion {
			qdot = formatFloats(n.QDot(st))
		}
		if want >= stage.Reaction {
			udot = formatFloats(n.UDot(st))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", n.Num(), n.Name(), n.Joint().Kind(), origin, qdot, udot)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	energy := map[string]float64{}
	if want >= stage.Motion {
		ke, err := m.Tree.KineticEnergy(st)
		if err != nil {
			return err
		}
		pe, err := m.Tree.PotentialEnergy(st, m.Gravity)
		if err != nil {
			return err
		}
		energy["kinetic"], energy["potential"] = ke, pe
		fmt.Println(boxStyle.Render(strings.Join([]string{
			field("kinetic", fmt.Sprintf("%.6f", ke)),
			field("potential", fmt.Sprintf("%.6f", pe)),
			field("total", fmt.Sprintf("%.6f", ke+pe)),
		}, "\n")))
	}

	if save {
		if want < stage.Reaction {
			return fmt.Errorf("--save needs --stage reaction, have %s", want)
		}
		store := storage.New(settings.GetString(cfgKeyDataDir))
		if err := store.Init(); err != nil {
			return err
		}
		id, err := store.Save(m.Name, m.Tree, st, energy)
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render("saved " + id))
	}
	return nil
}

func describeModel(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args)
	if err != nil {
		return err
	}
	t := m.Tree
	fmt.Println(titleStyle.Render(m.Name))
	fmt.Println(field("bodies", fmt.Sprint(t.NumBodies())) + "  " +
		field("levels", fmt.Sprint(len(t.Levels()))) + "  " +
		field("nq", fmt.Sprint(t.NQ())) + "  " +
		field("nu", fmt.Sprint(t.NU())) + "  " +
		field("orientation", m.State.ModelingVars().Rep().String()))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tBODY\tPARENT\tLEVEL\tJOINT\tQ\tU\tMASS")
	for _, n := range t.Nodes() {
		parent := "-"
		if !n.IsGround() {
			parent = t.Node(n.Parent()).Name()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%g\n",
			n.Num(), n.Name(), parent, n.Level(), n.Joint().Kind(),
			indexRange(n.QIndex(), n.MaxNQ()), indexRange(n.UIndex(), n.DOF()),
			n.MassProperties().Mass)
	}
	return w.Flush()
}

func benchModel(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	workers := settings.GetInt(cfgKeyWorkers)
	if workers <= 1 {
		workers = 0
	}

	fmt.Printf("benchmarking %s\n\n", modelName(args))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXECUTOR\tEVALS\tTIME\tEVALS/SEC")

	var results []sim.State
	for _, exec := range []struct {
		name string
		exec tree.Executor
	}{
		{"sequential", tree.Sequential{}},
		{"parallel", tree.NewParallel(workers)},
	} {
		m, err := loadModel(args)
		if err != nil {
			return err
		}
		sys, err := newSystem(m, exec.exec)
		if err != nil {
			return err
		}
		x := sys.Pack(m.State)

		var last sim.State
		start := time.Now()
		for i := 0; i < iterations; i++ {
			if last != nil {
				sys.Release(last)
			}
			if last, err = sys.Evaluate(ctx, x, nil, 0); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		results = append(results, last.Clone())

		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\n", exec.name, iterations, elapsed, float64(iterations)/elapsed.Seconds())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for i := range results[0] {
		if results[0][i] != results[1][i] {
			fmt.Println(warnStyle.Render(fmt.Sprintf("executors differ at %d: %g vs %g", i, results[0][i], results[1][i])))
			return nil
		}
	}
	fmt.Println(okStyle.Render("executors agree"))
	return nil
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	store := storage.New(settings.GetString(cfgKeyDataDir))
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no snapshots found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tSAVED\tBODIES\tNQ\tNU\tENERGY")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.6f\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NumBodies,
			run.NQ,
			run.NU,
			run.Energy["kinetic"]+run.Energy["potential"],
		)
	}
	return w.Flush()
}

func modelName(args []string) string {
	if configFile != "" {
		return configFile
	}
	if len(args) > 0 {
		return args[0]
	}
	return "pendulum"
}

func indexRange(start, n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("[%d,%d)", start, start+n)
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	return strings.Join(parts, " ")
}
