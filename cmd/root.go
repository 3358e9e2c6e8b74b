package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sockload/internal/banner"
	"sockload/internal/dummy"
	"sockload/internal/metrics"
	"sockload/internal/probe"
	"sockload/internal/report"
	"sockload/internal/request"
	"sockload/internal/runner"
	"sockload/internal/stats"
)

var (
	cfgFile string

	host        string
	port        int
	workers     int
	duration    int
	mode        string
	timeout     int
	metricsAddr string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "sockload",
	Short: "sockload - raw-socket load harness for the compute-sum service",
	Long: `
sockload hammers an HTTP/1.1 compute service over raw TCP, framing
responses by hand (status line + Content-Length). It runs N workers in
either keep-alive or close-after-request mode for a fixed duration and
exits 0 only when the run passes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoadTest()
	},
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(dummyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sockload.yaml)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "Target host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 8080, "Target port")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.Flags().IntVarP(&workers, "workers", "w", 16, "Number of concurrent workers")
	rootCmd.Flags().IntVarP(&duration, "duration", "d", 10, "Test duration in seconds")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "keepalive", "Connection mode: keepalive|close")
	rootCmd.Flags().IntVar(&timeout, "timeout", 5, "Per-operation socket timeout in seconds")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address during the run")

	// Flags win over config file and env; unset flags fall back to
	// $HOME/.sockload.yaml or SOCKLOAD_* variables.
	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("duration", rootCmd.Flags().Lookup("duration"))
	viper.BindPFlag("mode", rootCmd.Flags().Lookup("mode"))
	viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("metrics-addr", rootCmd.Flags().Lookup("metrics-addr"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".sockload")
		}
	}
	viper.SetEnvPrefix("sockload")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func runLoadTest() error {
	cfg := runner.Config{
		Host:     viper.GetString("host"),
		Port:     viper.GetInt("port"),
		Workers:  viper.GetInt("workers"),
		Duration: time.Duration(viper.GetInt("duration")) * time.Second,
		Mode:     request.Mode(viper.GetString("mode")),
		Timeout:  time.Duration(viper.GetInt("timeout")) * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	coord := runner.New(cfg)

	if addr := viper.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		coord.Aggregator().SetRecorder(metrics.NewRecorder(reg))
		srv := metrics.Serve(addr, reg)
		defer srv.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Print(report.Header(cfg))
	snap := coord.Run(ctx)
	fmt.Print(report.Render(snap))

	if snap.Verdict() != stats.VerdictPass {
		os.Exit(1)
	}
	return nil
}

// --- probe subcommand ---

var (
	probeCount   int
	probeTimeout int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Verify multi-request socket reuse over one keep-alive connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := probe.Verify(host, port, probeCount, time.Duration(probeTimeout)*time.Second)
		fmt.Println(report.RenderProbe(probeCount, res))
		if !res.OK {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().IntVarP(&probeCount, "count", "c", 5, "Requests to issue on the shared connection")
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 2, "Per-operation socket timeout in seconds")
}

// --- dummy subcommand ---

var dummyFailureRate float64

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run the built-in compute-sum target server",
	Run: func(cmd *cobra.Command, args []string) {
		dummy.Start(dummy.ServerConfig{Port: port, FailureRate: dummyFailureRate})
		select {}
	},
}

func init() {
	dummyCmd.Flags().Float64Var(&dummyFailureRate, "failure-rate", 0, "Inject HTTP 500s with this probability")
}
