package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"marksheet/internal/app"
	"marksheet/internal/config"
	"marksheet/internal/logging"
)

type commandContext struct {
	configFlag  *string
	dataDirFlag *string

	configOnce sync.Once
	config     *config.AppConfig
	info       config.LoadConfigInfo
	dataDir    string
	configErr  error
}

func newCommandContext(configFlag, dataDirFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		dataDirFlag: dataDirFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, info, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config %s: %w", info.Path, err)
			return
		}
		if c.dataDirFlag != nil && strings.TrimSpace(*c.dataDirFlag) != "" {
			cfg.Data.DataDir = strings.TrimSpace(*c.dataDirFlag)
		}
		dataDir, err := config.EnsureDataDir(cfg)
		if err != nil {
			c.configErr = fmt.Errorf("ensure data dir: %w", err)
			return
		}
		c.config = cfg
		c.info = info
		c.dataDir = dataDir
	})
	return c.config, c.configErr
}

// serveLogger 服务模式：控制台 + 日志文件
func (c *commandContext) serveLogger() (*zap.Logger, error) {
	return logging.NewFromConfig(c.config, c.dataDir)
}

// cliLogger 命令行模式：仅写日志文件，避免干扰命令输出
func (c *commandContext) cliLogger() (*zap.Logger, error) {
	logPath := filepath.Join(c.dataDir, "logs", "marksheet.log")
	return logging.New(logging.Options{
		Level:            c.config.Log.Level,
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
}

// withApp 打开组件并在结束后关闭
func (c *commandContext) withApp(fn func(*app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.cliLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.Open(cfg, c.dataDir, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
