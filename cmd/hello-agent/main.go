package main

import (
	"os"
	"strings"

	"github.com/go-go-golems/hello-agent/cmd/hello-agent/cmds"
	"github.com/go-go-golems/hello-agent/pkg/settings"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "hello-agent",
	Short: "hello-agent is a minimal tool-calling conversational agent",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		return initLogger()
	},
	SilenceUsage: true,
}

func initLogger() error {
	logLevel := viper.GetString("log-level")
	if viper.GetBool("verbose") && logLevel != "trace" {
		logLevel = "debug"
	}
	return InitLogger(&LogConfig{
		Level:      logLevel,
		Format:     viper.GetString("log-format"),
		File:       viper.GetString("log-file"),
		WithCaller: viper.GetBool("with-caller"),
	})
}

func initCommands(rootCmd *cobra.Command, configPath string) error {
	viper.SetEnvPrefix("hello_agent")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.hello-agent")

		xdgConfigPath, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(xdgConfigPath + "/hello-agent")
		}
	}

	err := viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// Config file not found; ignore error
	} else if err != nil {
		return err
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	settings.SetDefaults(viper.GetViper())

	err = viper.BindPFlags(rootCmd.PersistentFlags())
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"api.provider":        "provider",
		"api.model":           "model",
		"api.base-url":        "base-url",
		"loop.max-iterations": "max-iterations",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return err
		}
	}

	if err := initLogger(); err != nil {
		return err
	}
	log.Debug().
		Str("config", viper.ConfigFileUsed()).
		Msg("Loaded configuration")

	return nil
}

func main() {
	// logging flags
	rootCmd.PersistentFlags().Bool("with-caller", false, "Log caller")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (json, text); defaults to text on a terminal")
	rootCmd.PersistentFlags().String("log-file", "", "Log file (default: stderr)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./config.yaml or ~/.hello-agent/config.yaml)")

	// provider flags, also settable as api.* in the config file
	rootCmd.PersistentFlags().String("provider", "gemini", "Model provider (gemini, openai, echo)")
	rootCmd.PersistentFlags().String("model", "", "Model name (default depends on the provider)")
	rootCmd.PersistentFlags().String("base-url", "", "OpenAI-compatible API base URL")
	rootCmd.PersistentFlags().Int("max-iterations", 10, "Maximum number of model calls per message")

	// parse the flags one time just to catch --config
	configFile := ""
	for idx, arg := range os.Args {
		if arg == "--config" && len(os.Args) > idx+1 {
			configFile = os.Args[idx+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			configFile = strings.TrimPrefix(arg, "--config=")
		}
	}

	cobra.CheckErr(initCommands(rootCmd, configFile))

	rootCmd.AddCommand(
		cmds.NewServeCommand(),
		cmds.NewChatCommand(),
		cmds.NewAskCommand(),
		cmds.NewToolsCommand(),
	)

	cobra.CheckErr(rootCmd.Execute())
}
