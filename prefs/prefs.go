// Package prefs 保存用户偏好：打印配置与最近使用的模板、数据路径。
//
// 偏好以 JSON 保存在用户配置目录下；.env 文件和 PRINT_* 环境变量在文件之后生效。
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/zuccha/dnd-portal-sub000/printsheet"
)

// ErrInvalid 表示偏好未通过校验。
var ErrInvalid = errors.New("prefs: invalid preferences")

// 环境变量名。
const (
	EnvPaperType = "PRINT_PAPER_TYPE"
	EnvLayout    = "PRINT_LAYOUT"
	EnvBleedX    = "PRINT_BLEED_X"
	EnvBleedY    = "PRINT_BLEED_Y"
	EnvPalette   = "PRINT_PALETTE"
)

// Preferences 是持久化的用户偏好。
type Preferences struct {
	Print      printsheet.Config `json:"print"`
	LayoutPath string            `json:"layoutPath,omitempty"`
	DataPath   string            `json:"dataPath,omitempty"`
}

// Default 返回默认偏好。
func Default() Preferences {
	return Preferences{Print: printsheet.DefaultConfig()}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 按结构体标签校验偏好。
func (p Preferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DefaultPath 返回 <用户配置目录>/dnd-portal/preferences.json。
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("定位用户配置目录失败: %w", err)
	}
	return filepath.Join(dir, "dnd-portal", "preferences.json"), nil
}

// Load 读取 path 处的偏好。文件不存在时返回默认值；文件中缺少的字段保持默认。
func Load(path string) (Preferences, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("读取偏好文件 %s 失败: %w", path, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("解析偏好文件 %s 失败: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Default(), err
	}
	return p, nil
}

// Save 校验并写入偏好，必要时创建目录。
func Save(path string, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建偏好目录失败: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化偏好失败: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入偏好文件失败: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadEnvFile 把 .env 文件载入进程环境，已存在的变量不会被覆盖。
// 文件不存在时不报错。
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("载入 %s 失败: %w", path, err)
	}
	return nil
}

// LookupFunc 查询一个环境变量。
type LookupFunc func(key string) (string, bool)

// EnvMap 把 KEY=VALUE 形式的 dotenv 文本转换为 LookupFunc。
func EnvMap(dotenv string) (LookupFunc, error) {
	vars, err := godotenv.Unmarshal(dotenv)
	if err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}, nil
}

// ApplyEnv 用环境变量覆盖打印配置并重新校验。lookup 为 nil 时读取进程环境。
func ApplyEnv(p Preferences, lookup LookupFunc) (Preferences, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvPaperType); ok {
		p.Print.PaperType = printsheet.PaperType(strings.ToLower(v))
	}
	if v, ok := get(EnvLayout); ok {
		p.Print.Layout = printsheet.Orientation(strings.ToLower(v))
	}
	if v, ok := get(EnvPalette); ok {
		p.Print.PaletteName = strings.ToLower(v)
	}
	for _, f := range []struct {
		key string
		dst *float64
	}{{EnvBleedX, &p.Print.BleedX}, {EnvBleedY, &p.Print.BleedY}} {
		v, ok := get(f.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("%w: %s=%q 不是数字", ErrInvalid, f.key, v)
		}
		*f.dst = n
	}
	return p, p.Validate()
}
