package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/spance/droidship/deployer"
	"github.com/spance/droidship/deployer/android"
	"github.com/spance/droidship/deployer/definitions"
	"github.com/spance/droidship/deployer/llm"
	"github.com/spance/droidship/utils"
)

// Config holds all the configuration values from command line arguments
type Config struct {
	DeviceID   string   `json:"device_id"`
	Format     string   `json:"format"`
	Activity   string   `json:"activity"`
	Run        string   `json:"run"`
	WorkDir    string   `json:"work_dir"`
	BuildFlags []string `json:"build_flags"`

	Log      bool     `json:"log"`
	LogRaw   bool     `json:"log_raw"`
	LogClear bool     `json:"log_clear"`
	LogTags  []string `json:"log_tags"`

	Keystore         string `json:"keystore"`
	KeystorePassword string `json:"-"`
	KeystoreAlias    string `json:"keystore_alias"`
	KeyPassword      string `json:"-"`
	Bundletool       string `json:"bundletool"`

	ListDevices bool `json:"list_devices"`
	JSONOutput  bool `json:"json"`
	KillADB     bool `json:"kill_adb"`

	Analyze bool   `json:"analyze"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`

	Verbosity int    `json:"verbosity"`
	Artifact  string `json:"artifact"`
}

var rootCmd = &cobra.Command{
	Use:   "droidship [flags] <artifact>",
	Short: "Droidship - deploy APK and AAB artifacts to Android devices",
	Long: `Droidship deploys a packaged Android app (APK or AAB) to a connected
device, optionally launches it, and streams or scans the device log for
crashes. AAB bundles are packaged with bundletool before installing.`,
	Example: `  # Deploy an APK to the first connected device
  droidship -d auto app-release.apk

  # Deploy to a specific device
  droidship -d emulator-5554 app-release.apk

  # Deploy, launch, and stream filtered logs
  droidship -d auto --run com.example.app/com.example.app.MainActivity --log app-release.apk

  # Deploy an AAB bundle signed with the debug keystore
  droidship -d auto --bundletool ~/tools/bundletool.jar app-release.aab

  # List connected devices
  droidship --list-devices

  # Triage a detected crash with a model
  droidship -d auto --run com.example.app/com.example.app.MainActivity --analyze --apikey sk-xxxxx app-release.apk`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			config.Artifact = args[0]
		}
	},
}

var config = &Config{}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func init() {
	// Device options
	rootCmd.PersistentFlags().StringVarP(&config.DeviceID, "device-id", "d",
		getEnv("DROIDSHIP_DEVICE_ID", ""),
		"Device to deploy to ('auto' picks the first connected device, empty skips deployment)")

	rootCmd.PersistentFlags().BoolVar(&config.ListDevices, "list-devices", false,
		"List connected devices and exit")

	rootCmd.PersistentFlags().BoolVar(&config.JSONOutput, "json", false,
		"With --list-devices, print the device list as JSON")

	rootCmd.PersistentFlags().BoolVar(&config.KillADB, "kill-adb", false,
		"Kill the adb process when interrupted")

	// Deployment options
	rootCmd.PersistentFlags().StringVar(&config.Format, "format", "",
		"Artifact format: apk or aab (default: by file extension)")

	rootCmd.PersistentFlags().StringVarP(&config.Run, "run", "r", "",
		"Fully-qualified component to launch after installing (e.g. com.example.app/com.example.app.MainActivity)")

	rootCmd.PersistentFlags().StringVar(&config.Activity, "activity",
		getEnv("DROIDSHIP_ACTIVITY", "MainActivity"),
		"Activity name used in the log filters")

	rootCmd.PersistentFlags().StringVar(&config.WorkDir, "work-dir",
		getEnv("DROIDSHIP_WORK_DIR", filepath.Join(os.TempDir(), "droidship")),
		"Working directory for generated package sets")

	rootCmd.PersistentFlags().StringArrayVar(&config.BuildFlags, "build-flag", nil,
		"Flag the artifact was built with (repeatable; -g or --debug marks a debug build)")

	// Log options
	rootCmd.PersistentFlags().BoolVar(&config.Log, "log", false,
		"Stream filtered device logs after deploying")

	rootCmd.PersistentFlags().BoolVar(&config.LogRaw, "log-raw", false,
		"Stream unfiltered device logs after deploying")

	rootCmd.PersistentFlags().BoolVar(&config.LogClear, "log-clear", false,
		"Clear the device log before installing")

	rootCmd.PersistentFlags().StringArrayVar(&config.LogTags, "log-tag", nil,
		"Extra log tag to include when streaming (repeatable, 'Tag' or 'Tag:level')")

	// Bundle options
	rootCmd.PersistentFlags().StringVar(&config.Bundletool, "bundletool",
		getEnv("DROIDSHIP_BUNDLETOOL", ""),
		"Path to the bundletool jar (AAB only)")

	rootCmd.PersistentFlags().StringVar(&config.Keystore, "keystore",
		getEnv("DROIDSHIP_KEYSTORE", ""),
		"Keystore for bundle signing (default: ~/.android/debug.keystore)")

	rootCmd.PersistentFlags().StringVar(&config.KeystorePassword, "keystore-password",
		getEnv("DROIDSHIP_KEYSTORE_PASSWORD", ""),
		"Keystore password")

	rootCmd.PersistentFlags().StringVar(&config.KeystoreAlias, "keystore-alias",
		getEnv("DROIDSHIP_KEYSTORE_ALIAS", ""),
		"Keystore key alias")

	rootCmd.PersistentFlags().StringVar(&config.KeyPassword, "keystore-alias-password",
		getEnv("DROIDSHIP_KEYSTORE_ALIAS_PASSWORD", ""),
		"Keystore key password")

	// Crash analysis options
	rootCmd.PersistentFlags().BoolVar(&config.Analyze, "analyze", false,
		"Send a detected crash buffer to the model for triage")

	rootCmd.PersistentFlags().StringVar(&config.BaseURL, "base-url",
		getEnv("DROIDSHIP_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"),
		"Model API base URL")

	rootCmd.PersistentFlags().StringVar(&config.Model, "model",
		getEnv("DROIDSHIP_MODEL", "glm-4-flash"),
		"Model name")

	rootCmd.PersistentFlags().StringVar(&config.APIKey, "apikey",
		getEnv("DROIDSHIP_API_KEY", "EMPTY"),
		"API key for model authentication")

	// Other options
	rootCmd.PersistentFlags().IntVarP(&config.Verbosity, "verbosity", "v",
		getEnvInt("DROIDSHIP_VERBOSITY", 0),
		"Verbosity level: 0 normal, 1 echoes commands, 2 echoes raw tool output")
}

func main() {
	parseArgs()

	// Configure zerolog
	switch {
	case config.Verbosity >= 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case config.Verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := android.NewBridge(deployer.ExecRunner{})

	// Handle --list-devices (best effort, never fails)
	if config.ListDevices {
		handleListDevices(ctx, bridge)
		return
	}

	if passed := checkSystemRequirements(ctx, bridge); !passed {
		log.Info().Msg(strings.Repeat("-", 50))
		log.Error().Msg("❌ System check failed. Please fix the issues above.")
		os.Exit(1)
	}

	req := buildRequest()
	log.Debug().Msgf("Configuration: %s", utils.JsonIndent(req))

	// Map OS interrupts onto the deployment context. The flow itself holds
	// no global signal state, so embedding callers own their cancellation.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("interrupted, aborting deployment")
		if req.KillBridge {
			android.KillServer()
		}
		cancel()
	}()

	d := deployer.New(req)
	d.Bridge = bridge
	if config.Analyze {
		d.Analyzer = llm.NewAnalyzer(&definitions.ModelConfig{
			BaseURL:     config.BaseURL,
			ModelName:   config.Model,
			APIKey:      config.APIKey,
			MaxTokens:   getEnvInt("DROIDSHIP_MAX_TOKENS", 300),
			Temperature: 0,
		})
	}

	if err := d.Deploy(ctx); err != nil {
		log.Error().Err(err).Msg("❌ deployment failed")
		os.Exit(1)
	}

	if req.DeviceID == "" {
		log.Info().Msg("No device requested, nothing deployed. Use --device-id auto to pick one.")
		return
	}
	log.Info().Msg("✅ deployment finished")
}

func parseArgs() *Config {
	// Set pre-run validation
	rootCmd.PersistentPreRunE = validateArgs

	// Execute the command
	cobra.CheckErr(rootCmd.Execute())

	return config
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if config.Format != "" && config.Format != string(definitions.APK) && config.Format != string(definitions.AAB) {
		return fmt.Errorf("invalid format option: %s. Must be 'apk' or 'aab'", config.Format)
	}

	if config.Verbosity < 0 || config.Verbosity > 2 {
		return fmt.Errorf("invalid verbosity: %d. Must be 0, 1 or 2", config.Verbosity)
	}

	if !config.ListDevices && len(args) == 0 {
		return fmt.Errorf("missing artifact path (or use --list-devices)")
	}

	return nil
}

// buildRequest freezes the CLI flags into the immutable deployment request.
func buildRequest() *definitions.DeploymentRequest {
	format := definitions.PackageFormat(config.Format)
	if config.Format == "" {
		format = definitions.APK
		if strings.EqualFold(filepath.Ext(config.Artifact), bundleExt) {
			format = definitions.AAB
		}
	}

	mode := definitions.LogFiltered
	if config.LogRaw {
		mode = definitions.LogRaw
	}

	return &definitions.DeploymentRequest{
		Verbosity:  config.Verbosity,
		BuildFlags: config.BuildFlags,
		Format:     format,
		Keystore: definitions.Keystore{
			Path:        config.Keystore,
			Password:    config.KeystorePassword,
			KeyAlias:    config.KeystoreAlias,
			KeyPassword: config.KeyPassword,
		},
		Activity:   config.Activity,
		WorkDir:    config.WorkDir,
		DeviceID:   config.DeviceID,
		StreamLogs: config.Log || config.LogRaw,
		ClearLogs:  config.LogClear,
		LogMode:    mode,
		Artifact:   config.Artifact,
		LogTags:    config.LogTags,
		Run:        config.Run,
		KillBridge: config.KillADB,
		Bundletool: config.Bundletool,
	}
}

const bundleExt = ".aab"

func handleListDevices(ctx context.Context, bridge *android.Bridge) {
	devices := bridge.ConnectedDevices(ctx)

	if config.JSONOutput {
		fmt.Println(utils.JsonIndent(devices))
		return
	}

	if len(devices) == 0 {
		log.Info().Msg("No devices connected.")
		return
	}

	log.Info().Msg("Connected devices:")
	log.Info().Msg(strings.Repeat("-", 60))
	for _, d := range devices {
		statusIcon := "✅"
		if d.Status != "device" {
			statusIcon = "❌"
		}
		modelInfo := ""
		if d.Model != "" {
			modelInfo = fmt.Sprintf(" (%s)", d.Model)
		}
		log.Info().Str("device", fmt.Sprintf("  %s %-30s [%s]%s", statusIcon, d.DeviceID, d.ConnectionType, modelInfo)).Msg("")
	}
}

func checkSystemRequirements(ctx context.Context, bridge *android.Bridge) bool {
	log.Info().Msg("🔍 Checking system requirements...")
	log.Info().Msg(strings.Repeat("-", 50))

	// Check 1: Bridge tool installed
	log.Info().Msg("1. Checking ADB installation... ")
	if _, err := exec.LookPath("adb"); err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msg("   Error: adb is not installed or not in PATH.")
		log.Info().Msg("   Solution: Install the platform tools:")
		log.Info().Msg("     - macOS: brew install android-platform-tools")
		log.Info().Msg("     - Linux: sudo apt install android-tools-adb")
		log.Info().Msg("     - Windows: Download from https://developer.android.com/studio/releases/platform-tools")
		return false
	}
	// Double check by running version command
	output, err := exec.CommandContext(ctx, "adb", "version").Output()
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: adb command failed to run: %v", err)
		return false
	}
	lines := strings.Split(string(output), "\n")
	versionLine := ""
	if len(lines) > 0 {
		versionLine = strings.TrimSpace(lines[0])
	}
	if versionLine == "" {
		versionLine = "installed"
	}
	log.Info().Msgf("✅ OK (%s)", versionLine)

	// Check 2: Bundle tool resolvable (AAB deployments only)
	wantsAAB := config.Format == string(definitions.AAB) ||
		(config.Format == "" && strings.EqualFold(filepath.Ext(config.Artifact), bundleExt))
	if wantsAAB {
		log.Info().Msg("2. Checking bundle tool... ")
		if _, err := exec.LookPath("java"); err != nil {
			log.Error().Msg("❌ FAILED")
			log.Info().Msg("   Error: java is not installed or not in PATH.")
			log.Info().Msg("   Solution: Install a Java runtime (bundletool needs one).")
			return false
		}
		if config.Bundletool == "" {
			log.Error().Msg("❌ FAILED")
			log.Info().Msg("   Error: no bundletool jar configured.")
			log.Info().Msg("   Solution:")
			log.Info().Msg("     1. Download bundletool from https://github.com/google/bundletool/releases")
			log.Info().Msg("     2. Point --bundletool (or DROIDSHIP_BUNDLETOOL) at the jar")
			return false
		}
		if _, err := os.Stat(config.Bundletool); err != nil {
			log.Error().Msg("❌ FAILED")
			log.Info().Msgf("   Error: bundletool jar not readable: %v", err)
			return false
		}
		log.Info().Msgf("✅ OK (%s)", config.Bundletool)
	}

	// Check 3: Connected devices (informational; resolution decides later)
	log.Info().Msg("3. Checking connected devices... ")
	devices := bridge.ConnectedDevices(ctx)
	if len(devices) == 0 {
		log.Info().Msg("   No devices connected yet.")
		log.Info().Msg("     1. Enable USB debugging on your Android device")
		log.Info().Msg("     2. Connect via USB and authorize the connection")
	} else {
		deviceIDs := lo.Map(devices, func(d definitions.DeviceInfo, _ int) string { return d.DeviceID })
		displayIDs := deviceIDs
		if len(displayIDs) > 2 {
			displayIDs = deviceIDs[:2]
			displayIDs = append(displayIDs, "...")
		}
		log.Info().Msgf("✅ OK (%d device(s): %s)", len(devices), strings.Join(displayIDs, ", "))
	}

	log.Info().Msg(strings.Repeat("-", 50))
	log.Info().Msg("✅ All system checks passed!")

	return true
}
