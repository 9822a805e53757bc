package application

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lk2023060901/tinode-client-go/internal/session"
	"github.com/lk2023060901/tinode-client-go/internal/transport/ws"
	zlog "github.com/lk2023060901/tinode-client-go/pkg/log"
	"github.com/lk2023060901/tinode-client-go/pkg/metrics"
	zviper "github.com/lk2023060901/tinode-client-go/pkg/util/viper"
)

// ServerConfig 描述要连接的聊天服务器。
type ServerConfig struct {
	// Host 为 "主机:端口" 形式的服务器地址。
	Host string `mapstructure:"host"`
	// TLS 为 true 时使用 wss。
	TLS bool `mapstructure:"tls"`
	// APIKey 随握手请求头上报。
	APIKey string `mapstructure:"apikey"`
}

// AppConfig 描述客户端应用自身的标识。
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Locale   string `mapstructure:"locale"`
	Platform string `mapstructure:"platform"`
}

// Application is the main runtime container for a chat client process.
// It owns configuration and manages common dependencies.
type Application struct {
	cfg     *zviper.Config
	loggers map[string]*zlog.MLogger

	server ServerConfig
	app    AppConfig
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// Run is the entry of the client application.
// It parses command-line arguments (os.Args) and loads configuration file
// using the following priority:
//  1. Default: ./config.yaml
//  2. Env: TINODE_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := cfg.UnmarshalKey("server", &a.server); err != nil {
		return fmt.Errorf("parse server config: %w", err)
	}
	if err := cfg.UnmarshalKey("app", &a.app); err != nil {
		return fmt.Errorf("parse app config: %w", err)
	}
	// TINODE_SERVER_HOST / TINODE_SERVER_APIKEY 可覆盖文件中的对应项
	if host := cfg.GetString("server.host"); host != "" {
		a.server.Host = host
	}
	if key := cfg.GetString("server.apikey"); key != "" {
		a.server.APIKey = key
	}
	if a.server.Host == "" {
		return fmt.Errorf("server.host must be set")
	}

	if err := a.initLogging(); err != nil {
		return err
	}

	metrics.Register(prometheus.DefaultRegisterer)
	return nil
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Server returns the parsed server section.
func (a *Application) Server() ServerConfig {
	return a.server
}

// BuildSession 根据配置组装 websocket 传输与会话。
func (a *Application) BuildSession(store session.Store, factory session.TopicFactory) (*session.Session, error) {
	header := http.Header{}
	if a.server.APIKey != "" {
		header.Set("X-Tinode-APIKey", a.server.APIKey)
	}

	transport := ws.New(ws.Config{
		URL:           session.BuildEndpointURL(a.server.Host, a.server.TLS, true),
		RequestHeader: header,
	})

	return session.New(session.Config{
		AppName:      a.app.Name,
		Locale:       a.app.Locale,
		Platform:     a.app.Platform,
		OSVersion:    osVersion(),
		Transport:    transport,
		Store:        store,
		TopicFactory: factory,
	})
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if a.loggers == nil {
		return &zlog.MLogger{Logger: zlog.L()}
	}
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// loadConfig resolves config file path and loads it via viper wrapper.
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath := "./config.yaml"

	if envPath := os.Getenv("TINODE_CONFIG_FILE_PATH"); envPath != "" {
		configPath = envPath
	}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			val := strings.TrimPrefix(arg, "--config=")
			if val != "" {
				configPath = val
			}
			continue
		}
	}

	cfg := zviper.New(zviper.WithEnvPrefix("TINODE"))
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
	}

	return cfg, nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	if err := a.initModuleLoggersFromConfig(); err != nil {
		return err
	}
	return nil
}

// initGlobalLoggerFromEnv configures the process-wide logger based on TINODE_LOG_* env vars.
//
// Priority:
//   - TINODE_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - TINODE_LOG_LEVEL: log level (default "info").
//   - TINODE_LOG_STDOUT: whether to log to stdout (default false).
//   - TINODE_LOG_FILE_DIR: log directory.
//   - TINODE_LOG_FILE: log file name (empty means no file).
//   - TINODE_LOG_FORMAT: log format ("text" or "json", default "text").
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("TINODE_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:  getenvDefault("TINODE_LOG_LEVEL", "info"),
		Format: getenvDefault("TINODE_LOG_FORMAT", "text"),
		Stdout: getenvBool("TINODE_LOG_STDOUT", false),
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("TINODE_LOG_FILE_DIR", ""),
			Filename: getenvDefault("TINODE_LOG_FILE", ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from YAML config under "logging" key.
//
// Example:
//
//	logging:
//	  session:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: session.log
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger}
	}

	return nil
}

func osVersion() string {
	if v := os.Getenv("TINODE_OS_VERSION"); v != "" {
		return v
	}
	return "unknown"
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
