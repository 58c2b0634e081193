package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName 配置文件名
const FileName = "config.toml"

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Log    LogConfig    `toml:"log"`
	OCR    OCRConfig    `toml:"ocr"`
	Roster RosterConfig `toml:"roster"`
	Upload UploadConfig `toml:"upload"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int  `toml:"port"`
	DevMode     bool `toml:"dev_mode"`
	OpenBrowser bool `toml:"open_browser"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level"`  // debug/info/warn/error
	Format string `toml:"format"` // console/json
}

// OCRConfig 识别引擎配置
type OCRConfig struct {
	Engine         string   `toml:"engine"` // llm/tesseract
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Model          string   `toml:"model"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RetryAttempts  int      `toml:"retry_attempts"`
	Languages      []string `toml:"languages"`
}

// RosterConfig 花名册匹配配置
type RosterConfig struct {
	IdentityHeader  string `toml:"identity_header"`
	NameHeader      string `toml:"name_header"`
	HeaderScanLines int    `toml:"header_scan_lines"`
	SuffixLength    int    `toml:"suffix_length"`
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxImageBytes int64 `toml:"max_image_bytes"`
	MaxQueue      int   `toml:"max_queue"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        20262,
			DevMode:     false,
			OpenBrowser: true,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		OCR: OCRConfig{
			Engine:         "llm",
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "google/gemini-2.0-flash-001",
			TimeoutSeconds: 60,
			RetryAttempts:  3,
			Languages:      []string{"eng"},
		},
		Roster: RosterConfig{
			IdentityHeader:  "Admission No",
			NameHeader:      "Name",
			HeaderScanLines: 10,
			SuffixLength:    3,
		},
		Upload: UploadConfig{
			MaxImageBytes: 20 << 20,
			MaxQueue:      200,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 默认配置文件路径：可执行文件同目录下的 config.toml
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, FileName)
}

// Load 从指定路径加载配置，path 为空时使用默认路径；文件不存在时使用默认配置
func Load(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, err
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	applyEnv(config)
	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := Load("")
	return config, err
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("MARKSHEET_OCR_API_KEY")); v != "" {
		config.OCR.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("MARKSHEET_DATA_DIR")); v != "" {
		config.Data.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("MARKSHEET_OCR_ENGINE")); v != "" {
		config.OCR.Engine = strings.ToLower(v)
	}
}

// SaveConfig 保存配置
func SaveConfig(config *AppConfig, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// 先写临时文件再改名，避免写一半的配置
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ResolveDataDir 数据目录绝对路径：相对路径基于可执行文件所在目录
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// EnsureDataDir 确保数据目录及子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"logs", "exports"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}

// DBPath sqlite 数据库文件路径
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "marksheet.db")
}
