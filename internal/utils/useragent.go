package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo holds parsed information from a User-Agent string, recorded
// alongside audit entries for staff actions.
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Raw        string `json:"raw"`
}

// ParseUserAgent parses a User-Agent string and extracts device information
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{
			DeviceType: "unknown",
			OS:         "Unknown",
			Browser:    "Unknown",
			Raw:        userAgent,
		}
	}

	parser := ua.New(userAgent)

	info := DeviceInfo{
		Raw:   userAgent,
		IsBot: parser.Bot(),
		OS:    getOS(parser),
	}
	info.Browser, info.BrowserVer = parser.Browser()
	if info.Browser == "" {
		info.Browser = "Unknown"
	}
	info.DeviceType = getDeviceType(parser)

	return info
}

// getDeviceType determines if the device is mobile, tablet, or desktop
func getDeviceType(parser *ua.UserAgent) string {
	if parser.Mobile() {
		if isTablet(parser.UA()) {
			return "tablet"
		}
		return "mobile"
	}
	return "desktop"
}

// isTablet checks if the user agent indicates a tablet device
func isTablet(userAgent string) bool {
	userAgentLower := strings.ToLower(userAgent)

	tabletIndicators := []string{"ipad", "tablet", "kindle", "nexus 7", "nexus 9", "nexus 10", "sm-t"}
	for _, indicator := range tabletIndicators {
		if strings.Contains(userAgentLower, indicator) {
			return true
		}
	}

	return false
}

// getOS extracts operating system name and version
func getOS(parser *ua.UserAgent) string {
	osInfo := parser.OSInfo()
	if osInfo.Name == "" {
		return "Unknown"
	}
	if osInfo.Version != "" {
		return osInfo.Name + " " + osInfo.Version
	}
	return osInfo.Name
}
