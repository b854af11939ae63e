package upstream

import "strings"

// StreamAction is the upstream method used for every relay call.
const StreamAction = "streamGenerateContent"

// GlobalLocation is served from the non-regional host.
const GlobalLocation = "global"

func regionalBaseURL(location string) string {
	if strings.EqualFold(location, GlobalLocation) {
		return "https://aiplatform.googleapis.com"
	}
	return "https://" + location + "-aiplatform.googleapis.com"
}

// streamPath builds /v1/projects/{p}/locations/{l}/publishers/{pub}/models/{m}:streamGenerateContent.
func streamPath(project, location, publisher, model string) string {
	var b strings.Builder
	b.WriteString("/v1/projects/")
	b.WriteString(project)
	b.WriteString("/locations/")
	b.WriteString(location)
	b.WriteString("/publishers/")
	b.WriteString(publisher)
	b.WriteString("/models/")
	b.WriteString(model)
	b.WriteString(":")
	b.WriteString(StreamAction)
	return b.String()
}
