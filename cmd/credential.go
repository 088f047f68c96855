package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"skin-sync/internal/config"
	"skin-sync/internal/securestore"
	"skin-sync/internal/util"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the encrypted FTP password",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the FTP password encrypted with a passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		if !util.IsTerminal(os.Stdin) {
			return errors.New("credential set needs an interactive terminal")
		}

		util.Default.Suspend()
		prompt := promptui.Prompt{Label: "FTP password for " + cfg.FTP.User, Mask: '*'}
		password, err := prompt.Run()
		util.Default.Resume()
		if err != nil {
			return err
		}
		pass, err := passphrase("Vault passphrase", true)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.MetaDir(), 0755); err != nil {
			return err
		}
		path := filepath.Join(cfg.MetaDir(), securestore.FileName)
		if err := securestore.Seal([]byte(pass), []byte(password), path); err != nil {
			return err
		}
		cfg.FTP.Vault = true
		cfg.FTP.Password = ""
		if err := config.Save(cfg.Dir(), cfg); err != nil {
			return err
		}
		util.Default.Println(util.OKStyle.Render("✔ password stored in " + path))
		util.Default.Println(util.MutedStyle.Render("set " + PassphraseEnv + " to unlock it without a prompt"))
		return nil
	},
}

func init() {
	credentialCmd.AddCommand(credentialSetCmd)
}
