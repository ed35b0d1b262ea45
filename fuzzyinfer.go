// Fuzzy inference tool and service

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pelletier/go-toml/v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/fuzzy-inference/base/zaplog"

	"example.com/fuzzy-inference/benchmark"

	"example.com/fuzzy-inference/core/config"
	"example.com/fuzzy-inference/core/inference"
	"example.com/fuzzy-inference/core/model"
	"example.com/fuzzy-inference/core/server"
)

type svcConfig struct {
	ModelFile           string             `toml:"model_file,omitempty"`
	ListenAddr          string             `toml:"listen_address,omitempty"`
	MetricsAddr         string             `toml:"metrics_address,omitempty"`
	QUICAddr            string             `toml:"quic_address,omitempty"`
	TLSCertFile         string             `toml:"tls_cert_file,omitempty"`
	TLSKeyFile          string             `toml:"tls_key_file,omitempty"`
	WatchModel          bool               `toml:"watch_model,omitempty"`
	Resolution          int                `toml:"resolution,omitempty"`
	ConditionResolution int                `toml:"condition_resolution,omitempty"`
	BenchmarkGoroutines int                `toml:"benchmark_goroutines,omitempty"`
	BenchmarkRequests   int                `toml:"benchmark_requests,omitempty"`
	BenchmarkInputs     map[string]float64 `toml:"benchmark_inputs,omitempty"`
	OutputVariable      string             `toml:"output_variable,omitempty"`
}

// inputFlags collects repeated -input var=value flags.
type inputFlags map[string]float64

func (in inputFlags) String() string {
	var parts []string
	for k, v := range in {
		parts = append(parts, k+"="+strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (in inputFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("input must be var=value, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("input %q: %w", name, err)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("input %q: value must be finite, got %v", name, x)
	}
	in[name] = x
	return nil
}

var (
	log *zap.Logger
)

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
	zaplog.SetLogger(log)
}

func decodeConfig(raw []byte) (svcConfig, error) {
	var cfg svcConfig
	err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	return cfg, err
}

func loadConfig(configFile string) svcConfig {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		log.Fatal("failed to decode configuration", zap.Error(err))
	}
	if cfg.ModelFile == "" {
		log.Fatal("model_file not specified in config")
	}
	if !filepath.IsAbs(cfg.ModelFile) {
		cfg.ModelFile = filepath.Join(filepath.Dir(configFile), cfg.ModelFile)
	}
	return cfg
}

func newEngine(modelFile string, conditionResolution int) (*model.Model, *inference.Engine, error) {
	m, err := model.LoadFile(log, modelFile)
	if err != nil {
		return nil, nil, err
	}
	return m, inference.New(log, m.Rules, m.Variables, conditionResolution), nil
}

func runInfer(w io.Writer, modelFile string, inputs map[string]float64,
	q inference.Query, conditionResolution int) error {
	m, e, err := newEngine(modelFile, conditionResolution)
	if err != nil {
		return err
	}
	if q.Output == "" {
		q.Output = m.Output
	}
	for _, name := range m.Inputs {
		x, ok := inputs[name]
		if !ok {
			log.Warn("no value for input variable, its rules will not fire", zap.String("var", name))
			continue
		}
		v := m.Variables[name]
		fmt.Fprintf(w, "%s = %g:", name, x)
		degrees := v.Fuzzify(x)
		for _, t := range v.TermNames() {
			fmt.Fprintf(w, " %s %.3f", t, degrees[t])
		}
		fmt.Fprintln(w)
	}
	stages, err := e.InferChain(inputs, q)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		return errors.New("model has no rules")
	}
	for _, st := range stages {
		fmt.Fprintf(w, "%s = %.6f (%v, %v, %v, %v)\n",
			st.Output, st.Value, q.Mechanism, q.Implication, q.Aggregation, q.Defuzzifier)
		for _, rt := range st.Fired {
			fmt.Fprintf(w, "  %.3f  %v\n", rt.Truth, rt.Rule)
		}
	}
	return nil
}

func runTruth(w io.Writer, modelFile string, inputs map[string]float64, output string) error {
	_, e, err := newEngine(modelFile, config.DefaultConditionResolution)
	if err != nil {
		return err
	}
	for _, rt := range e.RuleTruthLevels(inputs, output) {
		fmt.Fprintf(w, "%.3f  %v\n", rt.Truth, rt.Rule)
	}
	return nil
}

func runCompare(w io.Writer, modelFile string, inputs map[string]float64, output string,
	resolution, conditionResolution int) error {
	m, e, err := newEngine(modelFile, conditionResolution)
	if err != nil {
		return err
	}
	if output == "" {
		output = m.Output
	}
	cs, err := e.Compare(inputs, output, resolution)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-10s %-10s %s\n", "mechanism", "implication", output)
	for _, c := range cs {
		fmt.Fprintf(w, "%-10v %-10v %.6f\n", c.Mechanism, c.Implication, c.Value)
	}
	return nil
}

func runServer(configFile string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(configFile)
	s, err := server.New(log, server.Config{
		ModelFile:           cfg.ModelFile,
		ListenAddr:          cfg.ListenAddr,
		MetricsAddr:         cfg.MetricsAddr,
		QUICAddr:            cfg.QUICAddr,
		TLSCertFile:         cfg.TLSCertFile,
		TLSKeyFile:          cfg.TLSKeyFile,
		WatchModel:          cfg.WatchModel,
		Resolution:          cfg.Resolution,
		ConditionResolution: cfg.ConditionResolution,
		OutputVariable:      cfg.OutputVariable,
	})
	if err != nil {
		log.Fatal("failed to load model", zap.Error(err))
	}
	err = s.Run(ctx)
	if err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func runBenchmark(configFile string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(configFile)
	m, e, err := newEngine(cfg.ModelFile, cfg.ConditionResolution)
	if err != nil {
		log.Fatal("failed to load model", zap.Error(err))
	}
	output := cfg.OutputVariable
	if output == "" {
		output = m.Output
	}
	_, err = benchmark.RunInferenceBenchmark(ctx, log, os.Stdout, e, cfg.BenchmarkInputs,
		inference.Query{Output: output, Resolution: cfg.Resolution},
		benchmark.Config{Goroutines: cfg.BenchmarkGoroutines, Requests: cfg.BenchmarkRequests})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("benchmark failed", zap.Error(err))
	}
}

func exitWithUsage() {
	fmt.Println(`usage: fuzzyinfer <command> [flags]

commands:
  infer     -model FILE -input var=value ... [-output NAME] [-mechanism truth|maxmin|maxprod]
            [-implication mamdani|larsen] [-aggregation max|sum|probor]
            [-defuzz centroid|bisector|mom] [-resolution N] [-condition-resolution N]
  truth     -model FILE -input var=value ... [-output NAME]
  compare   -model FILE -input var=value ... [-output NAME] [-resolution N]
  server    -config FILE
  benchmark -config FILE`)
	os.Exit(1)
}

func main() {
	var (
		verbose             bool
		configFile          string
		modelFile           string
		output              string
		mechanism           string
		implication         string
		aggregation         string
		defuzz              string
		resolution          int
		conditionResolution int
		inputs              = inputFlags{}
	)

	inferFlags := flag.NewFlagSet("infer", flag.ExitOnError)
	truthFlags := flag.NewFlagSet("truth", flag.ExitOnError)
	compareFlags := flag.NewFlagSet("compare", flag.ExitOnError)
	serverFlags := flag.NewFlagSet("server", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{inferFlags, truthFlags, compareFlags} {
		fs.BoolVar(&verbose, "verbose", false, "Verbose logging")
		fs.StringVar(&modelFile, "model", "", "Model file")
		fs.Var(inputs, "input", "Crisp input value as var=value (repeatable)")
		fs.StringVar(&output, "output", "", "Output variable")
	}
	for _, fs := range []*flag.FlagSet{inferFlags, compareFlags} {
		fs.IntVar(&resolution, "resolution", config.DefaultResolution, "Output grid resolution")
		fs.IntVar(&conditionResolution, "condition-resolution", config.DefaultConditionResolution,
			"Input grid resolution for relational composition")
	}
	inferFlags.StringVar(&mechanism, "mechanism", inference.TruthLevel.String(), "Inference mechanism")
	inferFlags.StringVar(&implication, "implication", inference.Mamdani.String(), "Implication operator")
	inferFlags.StringVar(&aggregation, "aggregation", inference.Max.String(), "Aggregation operator")
	inferFlags.StringVar(&defuzz, "defuzz", inference.Centroid.String(), "Defuzzification method")

	serverFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	serverFlags.StringVar(&configFile, "config", "", "Config file")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.StringVar(&configFile, "config", "", "Config file")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case inferFlags.Name():
		err := inferFlags.Parse(os.Args[2:])
		if err != nil || inferFlags.NArg() != 0 || modelFile == "" {
			exitWithUsage()
		}
		q := inference.Query{Output: output, Resolution: resolution}
		q.Mechanism, err = inference.ParseMechanism(mechanism)
		if err != nil {
			exitWithUsage()
		}
		q.Implication, err = inference.ParseImplication(implication)
		if err != nil {
			exitWithUsage()
		}
		q.Aggregation, err = inference.ParseAggregation(aggregation)
		if err != nil {
			exitWithUsage()
		}
		q.Defuzzifier, err = inference.ParseDefuzzifier(defuzz)
		if err != nil {
			exitWithUsage()
		}
		initLogger(verbose)
		err = runInfer(os.Stdout, modelFile, inputs, q, conditionResolution)
		if err != nil {
			log.Fatal("inference failed", zap.Error(err))
		}
	case truthFlags.Name():
		err := truthFlags.Parse(os.Args[2:])
		if err != nil || truthFlags.NArg() != 0 || modelFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		err = runTruth(os.Stdout, modelFile, inputs, output)
		if err != nil {
			log.Fatal("truth evaluation failed", zap.Error(err))
		}
	case compareFlags.Name():
		err := compareFlags.Parse(os.Args[2:])
		if err != nil || compareFlags.NArg() != 0 || modelFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		err = runCompare(os.Stdout, modelFile, inputs, output, resolution, conditionResolution)
		if err != nil {
			log.Fatal("comparison failed", zap.Error(err))
		}
	case serverFlags.Name():
		err := serverFlags.Parse(os.Args[2:])
		if err != nil || serverFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runServer(configFile)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runBenchmark(configFile)
	default:
		exitWithUsage()
	}
}
