package httpclient

import (
	"runtime"
	"strings"

	"github.com/kbukum/spacekit/version"
)

var osNames = map[string]string{
	"darwin":  "macOS",
	"linux":   "Linux",
	"windows": "Windows",
	"android": "Android",
	"ios":     "iOS",
}

// UserAgentHeader builds the X-Spacekit-User-Agent value:
//
//	sdk spacekit/1.2.0; platform go/1.26.0; os Linux; app shop/2.0; integration cms/1.1;
//
// sdk defaults to this module's name and version. Empty application and
// integration values are left out.
func UserAgentHeader(sdk, application, integration string) string {
	if sdk == "" {
		sdk = "spacekit/" + version.SDKVersion()
	}

	var b strings.Builder
	b.WriteString("sdk " + sdk + "; ")
	b.WriteString("platform go/" + strings.TrimPrefix(runtime.Version(), "go") + "; ")
	b.WriteString("os " + osName(runtime.GOOS) + ";")
	if application != "" {
		b.WriteString(" app " + application + ";")
	}
	if integration != "" {
		b.WriteString(" integration " + integration + ";")
	}
	return b.String()
}

func osName(goos string) string {
	if name, ok := osNames[goos]; ok {
		return name
	}
	return goos
}
