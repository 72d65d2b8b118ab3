package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v2"

	"github.com/sghaida/odirt/di"
	"github.com/sghaida/odirt/factfile"
	"github.com/sghaida/odirt/internal/config"
	"github.com/sghaida/odirt/internal/logging"
	"github.com/sghaida/odirt/internal/metrics"
)

// Version is reported by --version.
const Version = "0.2.0"

const (
	argEnvFile = "env-file"
	argFacts   = "facts"
	argOut     = "out"
	argFunc    = "func"
	argMetrics = "metrics"
)

// env holds what Before prepared for the commands.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func newApp(stdout io.Writer) *cli.App {
	e := &env{}

	factsFlag := &cli.StringFlag{
		Name:  argFacts,
		Usage: "fact file path (defaults to $" + config.KeyFacts + ")",
	}

	app := &cli.App{
		Name:    "odigen",
		Version: Version,
		Usage:   "plan, generate and trial-run dependency-injection fact files",
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  argEnvFile,
				Value: ".env",
				Usage: "dotenv file with ODI_* settings",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String(argEnvFile))
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.IsProduction())
			if err != nil {
				return err
			}
			e.cfg, e.log = cfg, log
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "plan a fact file and print its layers",
				Action: e.check,
				Flags:  []cli.Flag{factsFlag},
			},
			{
				Name:   "gen",
				Usage:  "generate Go code registering a fact file on a di.Registry",
				Action: e.gen,
				Flags: []cli.Flag{
					factsFlag,
					&cli.StringFlag{Name: argOut, Usage: "output .gen.go file path"},
					&cli.StringFlag{Name: argFunc, Value: "Register", Usage: "name of the generated function"},
				},
			},
			{
				Name:   "run",
				Usage:  "build a fact file with stub providers and resolve every produced type",
				Action: e.run,
				Flags: []cli.Flag{
					factsFlag,
					&cli.BoolFlag{Name: argMetrics, Usage: "print prometheus metrics (also $" + config.KeyMetrics + ")"},
				},
			},
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))
	return app
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "odigen:", err)
		os.Exit(1)
	}
}

// factsPath returns the --facts flag or the configured default.
func (e *env) factsPath(c *cli.Context) (string, error) {
	path := c.String(argFacts)
	if path == "" {
		path = e.cfg.Facts
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("missing --facts (or " + config.KeyFacts + ")")
	}
	return path, nil
}

// load reads a fact file and binds it to stub symbols.
func (e *env) load(c *cli.Context) (*factfile.Document, di.Facts, error) {
	path, err := e.factsPath(c)
	if err != nil {
		return nil, di.Facts{}, err
	}
	doc, err := factfile.Load(path)
	if err != nil {
		return nil, di.Facts{}, err
	}
	facts, err := factfile.Bind(doc, factfile.Stubs(doc))
	if err != nil {
		return nil, di.Facts{}, err
	}
	e.log.Debug("facts loaded",
		zap.String("path", path),
		zap.Int("types", len(facts.Types)),
		zap.Int("providers", len(facts.Providers)),
		zap.Int("events", len(facts.Events)),
	)
	return doc, facts, nil
}

func (e *env) check(c *cli.Context) error {
	_, facts, err := e.load(c)
	if err != nil {
		return err
	}
	g, err := di.Plan(facts)
	if err != nil {
		return err
	}

	w := c.App.Writer
	for i, layer := range g.Layers() {
		names := make([]string, len(layer))
		for j, d := range layer {
			names[j] = d.String()
		}
		fmt.Fprintf(w, "layer %d: %s\n", i, strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "handlers: %d\n", len(g.Handlers()))
	return nil
}

func (e *env) gen(c *cli.Context) error {
	path, err := e.factsPath(c)
	if err != nil {
		return err
	}
	out := c.String(argOut)
	if strings.TrimSpace(out) == "" {
		return errors.New("missing --out")
	}
	if err := generate(genOptions{FactsPath: path, OutPath: out, FuncName: c.String(argFunc)}); err != nil {
		return err
	}
	e.log.Info("generated", zap.String("facts", path), zap.String("out", out))
	fmt.Fprintln(c.App.Writer, "wrote", out)
	return nil
}

func (e *env) run(c *cli.Context) error {
	_, facts, err := e.load(c)
	if err != nil {
		return err
	}

	col := metrics.NewCollector("odi")
	ctr, err := di.Build(facts, di.WithLogger(e.log), di.WithObserver(col))
	if err != nil {
		return err
	}

	w := c.App.Writer
	seen := map[string]bool{}
	for _, d := range ctr.Graph().Definitions() {
		if d.Produces() == nil || seen[d.Produces().Key()] {
			continue
		}
		sig := d.Produces().Key()
		seen[sig] = true

		all, err := ctr.GetAll(sig)
		if err != nil {
			return errors.Wrapf(err, "resolve %s", sig)
		}
		fmt.Fprintf(w, "%s: %d instance(s)\n", sig, len(all))
	}

	if c.Bool(argMetrics) || e.cfg.Metrics {
		return col.WriteText(w)
	}
	return nil
}
