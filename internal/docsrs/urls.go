// Package docsrs talks to the documentation host: it resolves the latest
// published version of a crate and downloads its documentation archive.
package docsrs

import (
	"net/url"
	"strings"
)

// LatestURL returns the metadata page that names the latest version of name.
func LatestURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/crate/" + url.PathEscape(name) + "/latest"
}

// DownloadURL returns the documentation archive URL for name@version.
func DownloadURL(baseURL, name, version string) string {
	return strings.TrimRight(baseURL, "/") + "/crate/" + url.PathEscape(name) + "/" +
		url.PathEscape(version) + "/download"
}
