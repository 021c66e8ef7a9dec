package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Go      string `json:"go" yaml:"go"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := versionInfo{Version: a.version, Go: runtime.Version(), OS: runtime.GOOS, Arch: runtime.GOARCH}
			p := a.printer(cmd)
			if ok, err := p.structured(v); ok {
				return err
			}
			return p.line("byway-admin %s (%s %s/%s)", v.Version, v.Go, v.OS, v.Arch)
		},
	}
}
