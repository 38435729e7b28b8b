package binding

import (
	"fmt"
	"reflect"
	"time"

	"github.com/patrickmn/go-cache"
)

// Interpolator 以 (text, data 身份) 为键缓存 Interpolate 的结果。
// data 在引擎内只读，因此同一个 map 指针与同一段模板总能得到相同结果。
//
// 身份取自 map、slice 或指针的地址。记录被回收后，新记录可能复用同一地址，
// 而旧条目在 ttl 内仍然有效，所以缓存只应在记录存活期间使用：
// 一批记录处理完或记录被替换之后调用 Flush。
type Interpolator struct {
	cache *cache.Cache
}

// NewInterpolator 创建带过期时间的缓存；ttl <= 0 时条目永不过期。
func NewInterpolator(ttl time.Duration) *Interpolator {
	expiration := ttl
	cleanup := 2 * ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &Interpolator{cache: cache.New(expiration, cleanup)}
}

// Interpolate 与包级 Interpolate 语义一致；无法取得身份的 data（标量等）不缓存。
func (ip *Interpolator) Interpolate(text string, data any) string {
	id, ok := identity(data)
	if !ok {
		return Interpolate(text, data)
	}
	key := id + "\x00" + text
	if v, found := ip.cache.Get(key); found {
		return v.(string)
	}
	out := Interpolate(text, data)
	ip.cache.Set(key, out, cache.DefaultExpiration)
	return out
}

// Len 返回当前缓存的条目数。
func (ip *Interpolator) Len() int { return ip.cache.ItemCount() }

// Flush 清空缓存，例如数据记录被替换之后。
func (ip *Interpolator) Flush() { ip.cache.Flush() }

func identity(data any) (string, bool) {
	if data == nil {
		return "nil", true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice:
		if v.IsNil() {
			return "nil", true
		}
		return fmt.Sprintf("%s:%x", v.Type(), v.Pointer()), true
	default:
		return "", false
	}
}
