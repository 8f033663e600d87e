package utils

import (
	"strings"
	"time"
)

// 辅助函数：返回两个时间间隔中较小的一个
func MinDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// RemoveControlCharacters 移除控制字符
func RemoveControlCharacters(text string) string {
	// 移除常见的控制字符，但保留换行符和制表符
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, text)
}

var quotePairs = [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"「", "」"}}

// TrimQuotes 去掉首尾成对的引号，模型常把整段回答包在引号里
func TrimQuotes(text string) string {
	text = strings.TrimSpace(text)
	for _, pair := range quotePairs {
		if len(text) >= len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(text, pair[0]) && strings.HasSuffix(text, pair[1]) {
			return strings.TrimSpace(text[len(pair[0]) : len(text)-len(pair[1])])
		}
	}
	return text
}

// CleanModelText 清理模型输出：去控制字符、首尾空白和包裹引号
func CleanModelText(text string) string {
	return TrimQuotes(RemoveControlCharacters(text))
}
