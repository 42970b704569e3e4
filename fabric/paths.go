package fabric

import (
	"net/url"
	"strings"
)

// encodePathSegments URL-encodes each segment of a slash-separated path so
// characters like #, ?, %, and spaces are safe for interpolation into API
// URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

func workspacePath(workspaceID string) string {
	return "v1/workspaces/" + url.PathEscape(workspaceID)
}

func workspaceItemsPath(workspaceID string) string {
	return workspacePath(workspaceID) + "/items"
}

func jobsPath(workspaceID string) string {
	return workspacePath(workspaceID) + "/apacheAirflowJobs"
}

func jobPath(workspaceID, jobID string) string {
	return jobsPath(workspaceID) + "/" + url.PathEscape(jobID)
}

func jobFilePath(workspaceID, jobID, filePath string) string {
	return jobPath(workspaceID, jobID) + "/files/" + encodePathSegments(filePath)
}

func environmentPath(workspaceID, jobID string) string {
	return jobPath(workspaceID, jobID) + "/environment"
}

func poolsPath(workspaceID string) string {
	return jobsPath(workspaceID) + "/settings/pools"
}
