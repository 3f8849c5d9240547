package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"opsboard/config"
	"opsboard/internal/command"
	"opsboard/internal/log"
	"opsboard/utils/path"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	rootPath = path.RootPath()
	envPath  string
	yamlPath string
	conf     *config.Configuration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "app",
		Short: "opsboard 聚合服務（HTTP + cron）",
		Run: func(cmd *cobra.Command, args []string) {
			logger := mustLogger()
			defer logger.Sync()
			app, cleanup, err := wireApp(conf, logger)
			if err != nil {
				panic(err)
			}
			defer cleanup()

			logger.Info("start app ...")
			if err := app.Run(); err != nil {
				panic(err)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info("shutdown app ...")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := app.Stop(ctx); err != nil {
				panic(err)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&envPath, "env", "e", "", "Environment file, e.g. --env .env")
	rootCmd.PersistentFlags().StringVarP(&yamlPath, "config", "c", "", "YAML config file, e.g. --config config.yaml")

	cobra.OnInitialize(func() {
		if envPath != "" && yamlPath != "" {
			fmt.Println("同時指定 --env 與 --config，將以 --env 優先")
		}
		initConfig()
	})

	command.Register(rootCmd, func() (*command.Command, func(), error) {
		logger := mustLogger()
		cmd, cleanup, err := wireCommand(conf, logger)
		if err != nil {
			return nil, nil, err
		}
		return cmd, func() {
			cleanup()
			_ = logger.Sync()
		}, nil
	})

	// CLI 補跑收到 SIGINT 時取消進行中的 pass
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func mustLogger() *zap.Logger {
	if conf == nil {
		panic("config is nil! Check config/initConfig logic.")
	}
	logger, err := log.NewLogger(conf)
	if err != nil {
		panic(fmt.Errorf("init logger failed: %w", err))
	}
	return logger
}

func initConfig() {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	useFile := false

	if envPath != "" {
		useFile = true
		envPath = path.Resolve(rootPath, envPath)
		fmt.Println("load .env config:", envPath)
		v.SetConfigFile(envPath)
		v.SetConfigType("env")
	} else if yamlPath != "" {
		useFile = true
		yamlPath = path.Resolve(rootPath, yamlPath, "conf")
		fmt.Println("load yaml config:", yamlPath)
		v.SetConfigFile(yamlPath)
		v.SetConfigType("yaml")
	} else {
		fmt.Println("No configuration file specified, using environment variables only.")
	}

	if useFile {
		file := v.ConfigFileUsed()
		if ok, err := path.Exists(file); err != nil || !ok {
			panic(fmt.Errorf("config file not found: %s", file))
		}
		if err := v.ReadInConfig(); err != nil {
			panic(fmt.Errorf("read config failed: %w", err))
		}
		v.WatchConfig()
		v.OnConfigChange(func(in fsnotify.Event) {
			fmt.Println("config file changed:", in.Name)
			if err := v.Unmarshal(&conf); err != nil {
				fmt.Println("unmarshal on change failed:", err)
			}
		})
	}

	bindEnvs(v, reflect.TypeOf(config.Configuration{}))

	if err := v.Unmarshal(&conf); err != nil {
		fmt.Println("unmarshal config failed:", err)
	}
}

func bindEnvs(v *viper.Viper, t reflect.Type, keys ...string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			tag = field.Name
		}
		newPath := append(append([]string{}, keys...), tag)
		if field.Type.Kind() == reflect.Struct || (field.Type.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct) {
			bindEnvs(v, field.Type, newPath...)
		} else {
			v.BindEnv(strings.Join(newPath, "__"))
		}
	}
}
