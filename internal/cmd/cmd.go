package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/lsm303_unified/internal/app"
	"github.com/relabs-tech/lsm303_unified/internal/config"
)

var RootCmd = &cobra.Command{
	Use:   "lsm303",
	Short: "LSM303 accelerometer and magnetometer as unified sensors",
	Long: `lsm303 drives both channels of an LSM303 over I2C or a Bus Pirate and
exposes them as unified sensor events.

Configuration is read from, in order:
1. path specified in --config flag
2. path defined in the LSM303_CONFIG environment variable
3. $HOME/.config/lsm303/config.yaml, /etc/lsm303/config.yaml, current directory
Values are overridden by LSM303_* environment variables and then by flags.`,
	SilenceUsage: true,
}

// v carries flag bindings into config loading.
var v = config.NewViper()

func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	return config.InitGlobalWith(v, path)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"debug":       "debug",
	"transport":   "transport",
	"i2c-bus":     "i2c_bus",
	"serial-port": "serial_port",
	"interval":    "sample_interval_ms",
	"db":          "storage_path",
	"port":        "web_server_port",
}

// bindFlags binds the flags of the command being run. Several commands share
// flag names, so binding happens only once the command is known.
func bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

// runWith loads the configuration and runs fn until a signal arrives.
func runWith(fn func(ctx context.Context, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd); err != nil {
			return err
		}
		if err := loadConfig(cmd); err != nil {
			return err
		}
		ctx, stop := signalContext(cmd)
		defer stop()
		return fn(ctx, cmd)
	}
}

var ProbeCmd = &cobra.Command{
	Use:        "probe",
	SuggestFor: []string{"pro", "prob"},
	Short:      "configure both channels and print one event from each",
	Example:    `  lsm303 probe --transport buspirate --serial-port /dev/ttyUSB0`,
	RunE: runWith(func(ctx context.Context, cmd *cobra.Command) error {
		return app.RunProbe(ctx, cmd.OutOrStdout())
	}),
}

var ProduceCmd = &cobra.Command{
	Use:        "produce",
	SuggestFor: []string{"prod", "run"},
	Short:      "poll both channels and publish events to MQTT",
	Example:    `  lsm303 produce --interval 50`,
	RunE: runWith(func(ctx context.Context, cmd *cobra.Command) error {
		return app.RunProducer(ctx)
	}),
}

var ConsoleCmd = &cobra.Command{
	Use:   "console",
	Short: "print events published on MQTT",
	RunE: runWith(func(ctx context.Context, cmd *cobra.Command) error {
		return app.RunConsoleMQTT(ctx)
	}),
}

var WebCmd = &cobra.Command{
	Use:     "web",
	Short:   "serve the latest MQTT events over HTTP and websocket",
	Example: `  lsm303 web --port 8080`,
	RunE: runWith(func(ctx context.Context, cmd *cobra.Command) error {
		return app.RunWeb(ctx)
	}),
}

var DisplayCmd = &cobra.Command{
	Use:   "display",
	Short: "show the latest MQTT events on an SSD1306 display",
	RunE: runWith(func(ctx context.Context, cmd *cobra.Command) error {
		return app.RunDisplay(ctx)
	}),
}

var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "poll both channels and store events in SQLite",
	Long: `record polls both channels and stores events in SQLite until interrupted.
With --latest N it records nothing and prints the latest N events per quantity
of the session given by --session, or of the most recent one.`,
	Example: `  lsm303 record --db session.db
  lsm303 record --db session.db --latest 10`,
	RunE: runWith(func(ctx context.Context, cmd *cobra.Command) error {
		if n, _ := cmd.Flags().GetInt("latest"); n > 0 {
			sid, _ := cmd.Flags().GetInt64("session")
			return app.RunShowRecorded(ctx, cmd.OutOrStdout(), sid, n)
		}
		return app.RunRecorder(ctx)
	}),
}

var RegistersCmd = &cobra.Command{
	Use:        "registers",
	SuggestFor: []string{"reg", "regs"},
	Short:      "dump both register maps, optionally writing registers first",
	Long: `registers reads every mapped register of both devices and prints it.
Each --write device:reg=value is applied before the dump. Writes bypass the
channel configuration, so a later produce or record run configures the device again.`,
	Example: `  lsm303 registers
  lsm303 registers --write mag:0x01=0x40 --write accel:0x20=0x57`,
	RunE: runWith(func(ctx context.Context, cmd *cobra.Command) error {
		writes, _ := cmd.Flags().GetStringArray("write")
		return app.RunRegisters(ctx, cmd.OutOrStdout(), writes)
	}),
}

var InitCmd = &cobra.Command{
	Use:        "init",
	SuggestFor: []string{"ini", "in"},
	Short:      "init create a configuration template",
	Long: `init create a configuration template.
If --print flag is present, the configuration will be printed to stdout.
If --output / -o flag is present, the configuration will be saved to the path specified.
Otherwise init writes $HOME/.config/lsm303/config.yaml.
An existing file is only replaced when --yes / -y is present.`,
	Example: `  lsm303 init --print
  lsm303 init -o /path/to/config.yaml -y`,
	RunE: initCfg,
}

func initCfg(cmd *cobra.Command, args []string) error {
	cfg := config.Defaults()
	if p, _ := cmd.Flags().GetBool("print"); p {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(cfg)
	}
	out, _ := cmd.Flags().GetString("output")
	yes, _ := cmd.Flags().GetBool("yes")
	if err := config.WriteTemplate(cfg, out, yes); err != nil {
		return err
	}
	log.Infof("configuration written to %s", out)
	return nil
}

func sensorFlags(cmd *cobra.Command) {
	cmd.Flags().String("transport", config.TransportI2C, "register transport: i2c or buspirate")
	cmd.Flags().String("i2c-bus", "", "I2C bus name (empty selects the first one)")
	cmd.Flags().String("serial-port", "/dev/ttyUSB0", "Bus Pirate serial port")
}

func getRootCmd() *cobra.Command {
	RootCmd.PersistentFlags().String("config", "", "configuration file path")
	RootCmd.PersistentFlags().Bool("debug", false, "toggle debug logging")

	for _, c := range []*cobra.Command{ProbeCmd, ProduceCmd, RecordCmd, RegistersCmd} {
		sensorFlags(c)
	}
	ProduceCmd.Flags().Int("interval", 100, "sample interval in milliseconds")
	RecordCmd.Flags().String("db", "lsm303_events.db", "SQLite database path")
	RecordCmd.Flags().Int("latest", 0, "print the latest N recorded events per quantity instead of recording")
	RecordCmd.Flags().Int64("session", 0, "session to print with --latest (default: most recent)")
	RegistersCmd.Flags().StringArray("write", nil, "register write as device:reg=value (device is accel or mag)")
	WebCmd.Flags().Int("port", 8080, "HTTP listen port")

	InitCmd.Flags().Bool("print", false, "print config to stdout")
	InitCmd.Flags().BoolP("yes", "y", false, "overwrite")
	InitCmd.Flags().StringP("output", "o", config.DefaultConfigPath, "output path")

	RootCmd.AddCommand(ProbeCmd, ProduceCmd, ConsoleCmd, WebCmd, DisplayCmd, RecordCmd, RegistersCmd, InitCmd)
	return RootCmd
}

func Execute() {
	if err := getRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
