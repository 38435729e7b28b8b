package binding

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	exprPattern    = regexp.MustCompile(`<([^<>\s]+)>`)
	bracketPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)
	escapeReplacer = strings.NewReplacer(`\n`, "\n", `\r`, "\r")
)

// Interpolate 将文本中的 <path.to.value> 替换为 data 中对应值的字符串形式。
// 先把字面量 `\n`、`\r` 还原为换行符；路径不存在或越过叶子节点时替换为空串，从不报错。
func Interpolate(text string, data any) string {
	text = escapeReplacer.Replace(text)
	if !strings.Contains(text, "<") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := match[1 : len(match)-1]
		val, ok := Resolve(data, path)
		if !ok {
			return ""
		}
		return Stringify(val)
	})
}

// Resolve 沿着点号分隔的路径在 data 中查找值，`[key]` 会先改写为 `.key`。
func Resolve(data any, path string) (any, bool) {
	path = bracketPattern.ReplaceAllString(path, ".$1")
	path = strings.Trim(path, ".")
	if path == "" {
		return nil, false
	}
	current := data
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}
		next, ok := descend(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func descend(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		// 叶子节点（string/number/bool/nil）无法继续向下
		return nil, false
	}
}

// Stringify 返回值的展示形式：nil 为空串，数组以逗号连接，对象输出 JSON。
func Stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	case map[string]any, map[string]string:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
