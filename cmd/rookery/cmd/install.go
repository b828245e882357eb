package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rookery-dev/rookery/internal/core/backend"
	"github.com/rookery-dev/rookery/internal/core/installer"
	"github.com/rookery-dev/rookery/internal/core/provider"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

var (
	installKind      string
	installName      string
	installProvider  string
	installDir       string
	installCopy      bool
	installLink      bool
	installOverwrite bool
	installCached    bool
)

var installCmd = &cobra.Command{
	Use:   "install <ref>",
	Short: "Install resources from a backend into a provider",
	Long: `Install resources into a provider's directory tree.

Content is fetched from the reference's backend, committed to the global
cache, and placed by copy or link. Skills default to copy; workflows and
MCP servers default to link, with the cache as their source of truth.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstallCmd,
}

func init() {
	installCmd.Flags().StringVarP(&installKind, "kind", "k", "", "resource kind: skill, workflow, or mcp (default all)")
	installCmd.Flags().StringVarP(&installName, "name", "n", "", "install only the resource with this name")
	installCmd.Flags().StringVarP(&installProvider, "provider", "p", "", "target provider (default: detected in --dir)")
	installCmd.Flags().StringVarP(&installDir, "dir", "d", ".", "provider directory")
	installCmd.Flags().BoolVar(&installCopy, "copy", false, "place an independent copy")
	installCmd.Flags().BoolVar(&installLink, "link", false, "place a link into the cache")
	installCmd.Flags().BoolVar(&installOverwrite, "overwrite", false, "replace an existing install")
	installCmd.Flags().BoolVar(&installCached, "from-cache", false, "install from the global cache without contacting the origin")
	rootCmd.AddCommand(installCmd)
}

func runInstallCmd(cmd *cobra.Command, args []string) error {
	if installCopy && installLink {
		return fmt.Errorf("--copy and --link are mutually exclusive")
	}
	method := installer.Method("")
	if installCopy {
		method = installer.MethodCopy
	}
	if installLink {
		method = installer.MethodLink
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	return runInstall(cmd.Context(), a, installArgs{
		ref:       args[0],
		kind:      installKind,
		name:      installName,
		provider:  installProvider,
		dir:       installDir,
		method:    method,
		overwrite: installOverwrite,
		fromCache: installCached,
	})
}

// installArgs collects everything an install invocation needs, shared with
// the URL-scheme trigger command.
type installArgs struct {
	ref       string
	kind      string
	name      string
	provider  string
	dir       string
	method    installer.Method
	overwrite bool
	fromCache bool
}

func runInstall(ctx context.Context, a *app, in installArgs) error {
	resolved, err := a.resolve(in.ref)
	if err != nil {
		return err
	}

	prov, err := pickProvider(in.provider, in.dir)
	if err != nil {
		return err
	}

	nameFilter := in.name
	if nameFilter == "" {
		nameFilter = resolved.NameFilter
	}

	kinds := resource.Kinds()
	if in.kind != "" {
		k, err := resource.ParseKind(in.kind)
		if err != nil {
			return err
		}
		kinds = []resource.Kind{k}
	}

	src := resolved.Backend
	if in.fromCache {
		src = a.cache
	}

	var matched []resource.Descriptor
	for _, kind := range kinds {
		if !src.Supports(kind) || !prov.Supports(kind) {
			continue
		}
		for d, err := range src.List(ctx, kind, backend.Query{}) {
			if err != nil {
				return err
			}
			if nameFilter != "" && d.Name != nameFilter && d.ResourceID != nameFilter {
				continue
			}
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		if nameFilter != "" {
			return fmt.Errorf("no resource named %q found at %s", nameFilter, in.ref)
		}
		return fmt.Errorf("no resources found at %s", in.ref)
	}

	opts := installer.Options{Method: in.method, Overwrite: in.overwrite}
	for _, d := range matched {
		var rec *installer.Record
		if in.fromCache {
			rec, err = a.installer.InstallFromCache(ctx, d, prov, opts)
		} else {
			rec, err = a.installer.InstallFromRemote(ctx, src, d, prov, opts)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s (%s) -> %s\n",
			okStyle.Render("installed"), rec.Kind, rec.ResourceID, rec.Method, rec.InstalledPath)
	}
	return nil
}

// pickProvider resolves the target provider: an explicit name, or the
// single provider detected in the directory.
func pickProvider(name, dir string) (provider.Provider, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return provider.Provider{}, err
	}

	if name != "" {
		t, err := provider.ByName(name)
		if err != nil {
			return provider.Provider{}, err
		}
		return provider.Provider{Template: t, Dir: abs}, nil
	}

	detected := provider.DetectInFolder(abs)
	switch len(detected) {
	case 1:
		return provider.Provider{Template: detected[0], Dir: abs}, nil
	case 0:
		return provider.Provider{}, fmt.Errorf("no provider detected in %s; use --provider", abs)
	default:
		var names []string
		for _, t := range detected {
			names = append(names, t.Name())
		}
		return provider.Provider{}, fmt.Errorf("multiple providers detected (%s); use --provider",
			strings.Join(names, ", "))
	}
}
