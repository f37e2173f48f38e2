// Package appinfo exposes build metadata stamped into the binary at link
// time.
package appinfo

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stamped via LDFLAGS, e.g.:
//
//	go build -ldflags '-X github.com/regproxy/regproxy/pkg/appinfo.version=v1.0.0'
var (
	version      = "dev"
	buildDate    = "1970-01-01T00:00:00Z"
	gitBranch    = ""
	gitCommit    = ""
	gitTag       = ""
	gitTreeState = ""
)

// Version is the full build record: application version plus the git and
// build environment details captured at link time.
type Version struct {
	Version string    `json:"version" yaml:"version"`
	Git     GitInfo   `json:"git" yaml:"git"`
	Build   BuildInfo `json:"build" yaml:"build"`
}

// GitInfo is the state of the source tree the binary was built from.
type GitInfo struct {
	Branch    string `json:"branch" yaml:"branch"`
	Commit    string `json:"commit" yaml:"commit"`
	Tag       string `json:"tag" yaml:"tag"`
	TreeState string `json:"tree_state" yaml:"tree_state"`
}

// BuildInfo is the toolchain and platform the binary was built with.
type BuildInfo struct {
	BuildDate string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty" yaml:"go_version,omitempty"`
	Compiler  string `json:"compiler,omitempty" yaml:"compiler,omitempty"`
	Platform  string `json:"platform,omitempty" yaml:"platform,omitempty"`
}

// GetVersion returns the stamped build record.
func GetVersion() Version {
	return Version{
		Version: version,
		Git: GitInfo{
			Branch:    gitBranch,
			Commit:    gitCommit,
			Tag:       gitTag,
			TreeState: gitTreeState,
		},
		Build: BuildInfo{
			BuildDate: buildDate,
			GoVersion: runtime.Version(),
			Compiler:  runtime.Compiler,
			Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		},
	}
}

// ShortVersion returns the version, suffixed with the abbreviated commit when
// one was stamped. Used by the health endpoint.
func ShortVersion() string {
	if len(gitCommit) > 7 {
		return version + "-" + gitCommit[:8]
	}
	return version
}

// NewVersionWriter wraps v for rendering.
func NewVersionWriter(v Version) *VersionWriter {
	return &VersionWriter{version: v}
}

// VersionWriter renders a Version as text, json or yaml.
type VersionWriter struct {
	version Version

	short   bool
	format  string
	appName string
}

// SetShort selects the one-line text rendering.
func (vw *VersionWriter) SetShort(short bool) *VersionWriter {
	vw.short = short
	return vw
}

// SetFormat selects the output format, one of ["text", "json", "yaml"].
func (vw *VersionWriter) SetFormat(format string) *VersionWriter {
	vw.format = format
	return vw
}

// SetAppName sets the application name shown in the text rendering.
func (vw *VersionWriter) SetAppName(name string) *VersionWriter {
	vw.appName = name
	return vw
}

// Write renders the version to w in the selected format.
func (vw *VersionWriter) Write(w io.Writer) error {
	switch strings.ToLower(vw.format) {
	case "yaml", "yml":
		return yaml.NewEncoder(w).Encode(vw.version)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(vw.version)
	}
	if vw.short {
		_, err := fmt.Fprintln(w, vw.shortLine())
		return err
	}
	_, err := io.WriteString(w, vw.extended())
	return err
}

func (vw *VersionWriter) shortLine() string {
	s := vw.version.Version
	if commit := vw.version.Git.Commit; commit != "" {
		s += " (" + commit + ")"
	}
	return s
}

func (vw *VersionWriter) extended() string {
	v := vw.version
	var b strings.Builder
	if vw.appName != "" {
		fmt.Fprintf(&b, "Application  : %s\n", vw.appName)
	}
	fmt.Fprintf(&b, "Version      : %s\n", v.Version)
	b.WriteString("[Git]\n")
	fmt.Fprintf(&b, "  Branch     : %s\n", v.Git.Branch)
	fmt.Fprintf(&b, "  Commit     : %s\n", v.Git.Commit)
	fmt.Fprintf(&b, "  Tag        : %s\n", v.Git.Tag)
	fmt.Fprintf(&b, "  TreeState  : %s\n", v.Git.TreeState)
	b.WriteString("[Build]\n")
	fmt.Fprintf(&b, "  BuildDate  : %s\n", v.Build.BuildDate)
	fmt.Fprintf(&b, "  GoVersion  : %s\n", v.Build.GoVersion)
	fmt.Fprintf(&b, "  Compiler   : %s\n", v.Build.Compiler)
	fmt.Fprintf(&b, "  Platform   : %s\n", v.Build.Platform)
	return b.String()
}
