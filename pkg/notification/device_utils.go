package notification

import (
	"strings"
)

// ClientInfo is the browser, operating system and device class derived from a User-Agent
type ClientInfo struct {
	Browser string
	OS      string
	Device  string
}

// DetectClient derives client information from a User-Agent string
func DetectClient(userAgent string) ClientInfo {
	if userAgent == "" {
		return ClientInfo{}
	}
	return ClientInfo{
		Browser: detectBrowser(userAgent),
		OS:      detectOS(userAgent),
		Device:  detectDeviceType(userAgent),
	}
}

// detectDeviceType determines device type from user agent
func detectDeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad") {
		return "tablet"
	}
	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone") {
		return "mobile"
	}
	return "desktop"
}

// detectBrowser determines browser from user agent
func detectBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "edg"):
		return "Edge"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		return "Opera"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "chromium"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	}
	return "Other"
}

// detectOS determines operating system from user agent
func detectOS(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod"):
		return "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "linux"):
		return "Linux"
	}
	return "Other"
}
