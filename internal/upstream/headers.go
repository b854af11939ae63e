package upstream

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"vertex-relay/internal/version"
)

func userAgent() string {
	return fmt.Sprintf("vertex-relay/%s (%s; %s) %s", version.Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func googAPIClient() string {
	gv := strings.TrimPrefix(runtime.Version(), "go")
	if gv == "" {
		gv = "unknown"
	}
	return "gl-go/" + gv
}

func defaultHeaders(authorization, project string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", authorization)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent())
	h.Set("X-Goog-Api-Client", googAPIClient())
	if project != "" {
		h.Set("X-Goog-User-Project", project)
	}
	return h
}
