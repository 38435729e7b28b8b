package layout

import (
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/zuccha/dnd-portal-sub000/binding"
)

var (
	// ErrNoMeasurer 表示构建卡牌时缺少文本测量后端。
	ErrNoMeasurer = errors.New("layout: 缺少文本测量后端 Measurer")
	// ErrInvalidLayout 表示模板整体不合法。
	ErrInvalidLayout = errors.New("layout: 模板无效")
	// ErrInvalidItem 表示模板中的某个元素不合法。
	ErrInvalidItem = errors.New("layout: 元素无效")
)

// BuildOptions 配置卡牌构建所需的依赖。
type BuildOptions struct {
	Measurer     Measurer
	Logger       *zap.Logger
	Interpolator *binding.Interpolator // 为空时不做缓存
	OnPageCount  PageCountFunc
	// Coordinator 在多次构建同一张卡牌时复用分页结果；设置后页数通过它的
	// 回调报告，OnPageCount 被忽略。
	Coordinator *Coordinator
	Debug       DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Pages bool // 在调试 JSON 中附带每页的分页文本
}

func (o BuildOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o BuildOptions) interpolate(text string, data any) string {
	if o.Interpolator != nil {
		return o.Interpolator.Interpolate(text, data)
	}
	return binding.Interpolate(text, data)
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
