package renderer

import (
	"context"

	"github.com/zuccha/dnd-portal-sub000/layout"
	"github.com/zuccha/dnd-portal-sub000/printsheet"
)

// Renderer 将拼版结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据（例如 PDF 字节切片）以及可能的错误。
type Renderer interface {
	Render(ctx context.Context, doc *printsheet.Document) ([]byte, error)
}

// Backend 既能测量文本也能输出文件，排版与渲染必须使用同一套字体度量。
type Backend interface {
	Renderer
	layout.Measurer
}
