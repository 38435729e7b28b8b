// Package fonts 提供内置的默认字体族（Go 字体），无需外部字体文件即可排版。
package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFamily 是模板未指定或指定了未知字体族时使用的字体族。
const DefaultFamily = "Go"

// Face 标识字体族中的一个字形变体。
type Face struct {
	Bold   bool
	Italic bool
}

// Family 是一个字体族四种变体的 TTF 数据，缺失的变体为空。
type Family struct {
	Regular    []byte
	Bold       []byte
	Italic     []byte
	BoldItalic []byte
}

// Data 返回变体的字节数据，缺失时依次回退到相近的变体。
func (f Family) Data(face Face) []byte {
	candidates := [][]byte{f.Regular}
	switch {
	case face.Bold && face.Italic:
		candidates = [][]byte{f.BoldItalic, f.Bold, f.Italic, f.Regular}
	case face.Bold:
		candidates = [][]byte{f.Bold, f.Regular}
	case face.Italic:
		candidates = [][]byte{f.Italic, f.Regular}
	}
	for _, data := range candidates {
		if len(data) > 0 {
			return data
		}
	}
	return nil
}

var builtin = map[string]Family{
	"go": {
		Regular:    goregular.TTF,
		Bold:       gobold.TTF,
		Italic:     goitalic.TTF,
		BoldItalic: gobolditalic.TTF,
	},
	"go mono": {Regular: gomono.TTF},
}

// Lookup 返回名为 name 的内置字体族，名称不区分大小写。
func Lookup(name string) (Family, bool) {
	f, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Load 返回内置字体的字节数据，name 可写为 "embed:Go" 或 "Go Mono"。
func Load(name string, face Face) ([]byte, error) {
	name = strings.TrimPrefix(name, "embed:")
	f, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("找不到内置字体 %s", name)
	}
	return f.Data(face), nil
}
