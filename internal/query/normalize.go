package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Normalize 预处理原始查询参数（每个 key 取第一个值）
//   - "true"/"false" 转为 bool
//   - "null"/"undefined" 视为未传
//   - 规范写法的数字字符串转为数字（整数为 int64，其余为 float64）；
//     前导零、正号、超出 int64 等转回字符串会变样的值保留原文，如 expedia_id=00123
//   - 空 search 去掉；category=All 表示不过滤
func Normalize(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		raw := vs[0]

		switch {
		case key == "search" && strings.TrimSpace(raw) == "":
			continue
		case key == "category" && raw == "All":
			continue
		}

		v, ok := coerce(raw)
		if !ok {
			continue
		}
		out[key] = v
	}
	return out
}

func coerce(raw string) (any, bool) {
	switch raw {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null", "undefined":
		return nil, false
	}
	if n, ok := parseNumber(raw); ok {
		return n, true
	}
	return raw, true
}

// parseNumber 只接受转换后能原样格式化回去的写法
func parseNumber(s string) (any, bool) {
	if s == "" || strings.TrimSpace(s) != s {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if strconv.FormatInt(i, 10) != s {
			return nil, false
		}
		return i, true
	}
	// 只接受十进制写法；NaN/Inf/十六进制保留为字符串
	if strings.ContainsAny(s, "xXpPnN") {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	if strconv.FormatFloat(f, 'f', -1, 64) != s {
		return nil, false
	}
	return f, true
}
