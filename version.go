package revenium

import (
	"fmt"
	"runtime/debug"
)

// middlewareSource follows the Revenium convention revenium-{provider}-{language}.
const middlewareSource = "revenium-perplexity-go"

var (
	middlewareVersion = "0.1.0"
	userAgent         string
)

func init() {
	goVersion := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		goVersion = info.GoVersion
	}
	userAgent = fmt.Sprintf("%s/%s Go/%s", middlewareSource, middlewareVersion, goVersion)
}
