package viper

import (
	"path/filepath"
	"strings"

	spfviper "github.com/spf13/viper"

	"github.com/lk2023060901/tinode-client-go/pkg/util/merr"
)

// Config 封装 spf13/viper 实例，提供客户端进程所需的精简配置接口：
// 加载单个 YAML/JSON 配置文件，并支持用环境变量覆盖其中的配置项。
type Config struct {
	v    *spfviper.Viper
	path string
}

// Option 调整 Config 的行为。
type Option func(*Config)

// WithEnvPrefix 开启环境变量覆盖。
// 配置项 "server.host" 对应的变量名为 <PREFIX>_SERVER_HOST。
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.v.SetEnvPrefix(prefix)
		c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		c.v.AutomaticEnv()
	}
}

// New 创建一个空的 Config。
// 在读取配置项之前需要先调用 LoadFile 加载配置文件。
func New(opts ...Option) *Config {
	c := &Config{v: spfviper.New()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadFile 将 YAML 或 JSON 配置文件加载到 Config 中。
// 文件类型通过扩展名推断，不支持的扩展名直接报错。
func (c *Config) LoadFile(path string) error {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		return merr.WrapErrInvalidArgument("config file", path, "expect .yaml/.yml/.json")
	}

	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return err
	}
	c.path = path
	return nil
}

// FilePath 返回最近一次成功加载的配置文件路径。
func (c *Config) FilePath() string {
	return c.path
}

// IsSet 报告指定 key 是否有值，环境变量覆盖同样计入。
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// GetString 返回指定 key 的字符串值，环境变量覆盖优先于文件内容。
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// Unmarshal 将完整配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) UnmarshalKey(key string, dst any) error {
	return c.v.UnmarshalKey(key, dst)
}
