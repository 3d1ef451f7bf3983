// Package useragent 从 User-Agent 字符串解析设备、浏览器和操作系统。
// 基于有序的关键字规则做尽力而为的分类，不追求精确 UA 解析。
package useragent

import "strings"

// 设备类型取值
const (
	DeviceBot     = "bot"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

const Unknown = "Unknown"

// Classification 是一次 User-Agent 解析的结果
type Classification struct {
	DeviceType      string
	Browser         string
	OperatingSystem string
}

// rule 按声明顺序求值，priority 隐含在切片顺序里
type rule struct {
	match func(ua string) bool
	label string
}

func anyOf(tokens ...string) func(string) bool {
	return func(ua string) bool {
		for _, t := range tokens {
			if strings.Contains(ua, t) {
				return true
			}
		}
		return false
	}
}

// bot 优先于设备类别；android 不带 mobile 视为平板
var deviceRules = []rule{
	{anyOf("bot", "crawler", "spider", "scraper", "curl", "wget"), DeviceBot},
	{anyOf("mobile", "iphone", "ipod", "blackberry", "windows phone"), DeviceMobile},
	{anyOf("tablet", "ipad", "android"), DeviceTablet},
}

// 现代 Edge/Chrome 的 UA 包含彼此的子串，顺序决定归属
var browserRules = []rule{
	{anyOf("edg"), "Edge"},
	{anyOf("chrome"), "Chrome"},
	{anyOf("safari"), "Safari"},
	{anyOf("firefox"), "Firefox"},
	{anyOf("opera", "opr"), "Opera"},
	{anyOf("msie", "trident"), "Internet Explorer"},
}

// iOS 的 UA 含 "like Mac OS X"，Android 的 UA 含 "Linux"，
// 移动系统必须排在桌面系统前面
var osRules = []rule{
	{anyOf("windows nt 10.0", "windows 10"), "Windows 10"},
	{anyOf("windows nt 6.3", "windows 8.1"), "Windows 8.1"},
	{anyOf("windows nt 6.2", "windows 8"), "Windows 8"},
	{anyOf("windows nt 6.1", "windows 7"), "Windows 7"},
	{anyOf("windows"), "Windows"},
	{anyOf("iphone", "ipad", "ipod"), "iOS"},
	{anyOf("android"), "Android"},
	{anyOf("mac os x", "macintosh"), "macOS"},
	{anyOf("linux"), "Linux"},
}

func classify(ua string, rules []rule, fallback string) string {
	for _, r := range rules {
		if r.match(ua) {
			return r.label
		}
	}
	return fallback
}

// ParseDeviceType 解析设备类型；空 UA 返回空串
func ParseDeviceType(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	return classify(strings.ToLower(userAgent), deviceRules, DeviceDesktop)
}

// ParseBrowser 解析浏览器；空 UA 返回空串
func ParseBrowser(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	return classify(strings.ToLower(userAgent), browserRules, Unknown)
}

// ParseOperatingSystem 解析操作系统；空 UA 返回空串
func ParseOperatingSystem(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	return classify(strings.ToLower(userAgent), osRules, Unknown)
}

// Classify 一次性解析设备、浏览器和操作系统
func Classify(userAgent string) Classification {
	return Classification{
		DeviceType:      ParseDeviceType(userAgent),
		Browser:         ParseBrowser(userAgent),
		OperatingSystem: ParseOperatingSystem(userAgent),
	}
}
