package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skin-sync/internal/config"
	"skin-sync/internal/engine"
	"skin-sync/internal/history"
	"skin-sync/internal/ignore"
	"skin-sync/internal/util"

	"github.com/spf13/cobra"
)

var initOpts struct {
	name       string
	host       string
	port       int
	user       string
	remotePath string
	localPath  string
	solution   string
	force      bool
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create skin-sync.yaml and a default .sync_ignore",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if config.Exists(abs) && !initOpts.force {
			return fmt.Errorf("%s already exists in %s, pass --force to overwrite", config.ConfigFileName, abs)
		}

		name := initOpts.name
		if name == "" {
			name = filepath.Base(abs)
		}
		cfg := config.Default(name)
		cfg.FTP.Host = initOpts.host
		cfg.FTP.User = initOpts.user
		if initOpts.port != 0 {
			cfg.FTP.Port = initOpts.port
		}
		if initOpts.remotePath != "" {
			cfg.RemotePath = initOpts.remotePath
		}
		if initOpts.localPath != "" {
			cfg.LocalPath = initOpts.localPath
		}
		if initOpts.solution != "" {
			if !engine.SolutionType(initOpts.solution).Valid() {
				return fmt.Errorf("unknown solution %q", initOpts.solution)
			}
			cfg.Solution = initOpts.solution
		}
		cfg.SetDir(abs)
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
		if err := config.Save(abs, cfg); err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.LocalRoot(), 0755); err != nil {
			return err
		}
		if err := writeDefaultIgnore(cfg.LocalRoot()); err != nil {
			return err
		}
		if err := history.Default().Touch(abs, name); err != nil {
			util.Default.Println(util.WarnStyle.Render("could not update project history: " + err.Error()))
		}

		util.Default.Println(util.OKStyle.Render("✔ created " + filepath.Join(abs, config.ConfigFileName)))
		if cfg.FTP.Host == "" || cfg.FTP.User == "" {
			util.Default.Println("Fill in ftp.host and ftp.user, then run 'skin-sync credential set' or set ftp.password.")
		}
		util.Default.Println("Run 'skin-sync pull' to download the skin and record its baseline.")
		return nil
	},
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initOpts.name, "name", "", "project name (default: directory name)")
	f.StringVar(&initOpts.host, "host", "", "FTP host")
	f.IntVar(&initOpts.port, "port", 0, "FTP port (default 21)")
	f.StringVar(&initOpts.user, "user", "", "FTP user")
	f.StringVar(&initOpts.remotePath, "remote-path", "", "skin directory on the server (default /)")
	f.StringVar(&initOpts.localPath, "local-path", "", "working copy directory (default skin)")
	f.StringVar(&initOpts.solution, "solution", "", "skin-ftp, mobile-ftp or browser-upload")
	f.BoolVar(&initOpts.force, "force", false, "overwrite an existing config")
}

// writeDefaultIgnore seeds the working copy's root .sync_ignore unless the
// user already has one.
func writeDefaultIgnore(root string) error {
	path := filepath.Join(root, ignore.FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	content := "# gitignore syntax, evaluated per directory\n" + strings.Join(ignore.DefaultPatterns, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0644)
}
