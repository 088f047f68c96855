package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"skin-sync/internal/config"
	"skin-sync/internal/engine"
	"skin-sync/internal/events"
	"skin-sync/internal/ftpclient"
	"skin-sync/internal/history"
	"skin-sync/internal/ignore"
	"skin-sync/internal/logging"
	"skin-sync/internal/metastore"
	"skin-sync/internal/oplog"
	"skin-sync/internal/securestore"
	"skin-sync/internal/util"

	"github.com/manifoldco/promptui"
)

// PassphraseEnv lets scripts unlock the credential vault without a prompt.
const PassphraseEnv = "SKIN_SYNC_PASSPHRASE"

// session wires one project's config into an engine for a single command.
type session struct {
	cfg     *config.Config
	project engine.Project
	engine  *engine.Engine
	matcher *ignore.Matcher
	oplog   *oplog.Log
	logger  *slog.Logger
	closers []func() error
}

func projectDir() (string, error) {
	start := projectFlag
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = cwd
	}
	return config.FindProjectDir(start)
}

func openSession() (*session, error) {
	dir, err := projectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	logger, logCloser := logging.New(logging.Options{
		Dir:        filepath.Join(cfg.MetaDir(), "logs"),
		Level:      cfg.Log.Level,
		Verbose:    verbose,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	slog.SetDefault(logger)
	s := &session{cfg: cfg, logger: logger, closers: []func() error{logCloser.Close}}

	meta, err := openMetaStore(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	if c, ok := meta.(io.Closer); ok {
		s.closers = append(s.closers, c.Close)
	}

	password, err := resolvePassword(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.matcher = ignore.New(cfg.LocalRoot())
	s.project = engine.Project{
		Name:       cfg.ProjectName,
		Solution:   engine.SolutionType(cfg.Solution),
		LocalRoot:  cfg.LocalRoot(),
		MetaDir:    cfg.MetaDir(),
		RemotePath: cfg.RemotePath,
		Credential: ftpclient.Credential{
			Host:     cfg.FTP.Host,
			Port:     cfg.FTP.Port,
			User:     cfg.FTP.User,
			Password: password,
		},
		Skip: s.matcher.Skip,
	}

	transport := ftpclient.New(
		ftpclient.WithTimeout(cfg.Transfer.Timeout),
		ftpclient.WithMaxAttempts(cfg.Transfer.MaxAttempts),
		ftpclient.WithForcePASV(cfg.FTP.ForcePASV),
		ftpclient.WithProgressEvery(cfg.Transfer.ProgressEvery),
		ftpclient.WithLogger(logger),
	)
	s.engine = engine.New(transport, meta, engine.WithLogger(logger), engine.WithBus(events.GlobalBus))

	if log, err := oplog.Open(filepath.Join(cfg.MetaDir(), oplog.FileName)); err != nil {
		logger.Warn("operation log unavailable", "error", err)
	} else {
		s.oplog = log
		detach, err := log.Attach(events.GlobalBus, s.project.Key(), func(err error) {
			logger.Warn("could not record operation", "error", err)
		})
		if err == nil {
			s.closers = append(s.closers, func() error { detach(); return nil })
		}
		s.closers = append(s.closers, log.Close)
	}

	showProgress := func(p ftpclient.Progress) {
		util.Default.Status(fmt.Sprintf("%s %d/%d %s", p.Op, p.Done, p.Total, p.Path))
	}
	if err := events.GlobalBus.Subscribe(events.EventTransferProgress, showProgress); err == nil {
		s.closers = append(s.closers, func() error {
			return events.GlobalBus.Unsubscribe(events.EventTransferProgress, showProgress)
		})
	}

	if err := history.Default().Touch(cfg.Dir(), cfg.ProjectName); err != nil {
		logger.Debug("could not update project history", "error", err)
	}
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}

// run executes one engine operation, renders its outcome and records
// failures in the operation log. Successful operations reach the log
// through the event bus.
func (s *session) run(name string, fn func() (engine.Outcome, error)) error {
	started := time.Now()
	out, err := fn()
	if err != nil {
		if s.oplog != nil {
			if lerr := s.oplog.RecordFailure(s.project.Key(), name, started, err); lerr != nil {
				s.logger.Warn("could not record operation", "error", lerr)
			}
		}
		s.logger.Error("operation failed", "op", name, "error", err)
		if errors.Is(err, engine.ErrConfig) {
			return fmt.Errorf("%w\n💡 check %s", err, filepath.Join(s.cfg.Dir(), config.ConfigFileName))
		}
		return err
	}
	render(out)
	return nil
}

func openMetaStore(cfg *config.Config) (metastore.Store, error) {
	switch cfg.Metadata.Backend {
	case "sqlite":
		return metastore.OpenSQLStore(filepath.Join(cfg.MetaDir(), "metadata.db"))
	default:
		return metastore.NewFileStore(metastore.SingleDir(cfg.MetaDir())), nil
	}
}

// resolvePassword returns the configured password, unlocking the vault when
// the config asks for it.
func resolvePassword(cfg *config.Config) (string, error) {
	if cfg.FTP.Password != "" || !cfg.FTP.Vault {
		return cfg.FTP.Password, nil
	}
	path := filepath.Join(cfg.MetaDir(), securestore.FileName)
	if !securestore.Exists(path) {
		return "", nil
	}
	pass, err := passphrase("Vault passphrase", false)
	if err != nil {
		return "", err
	}
	secret, err := securestore.Open([]byte(pass), path)
	if err != nil {
		return "", fmt.Errorf("unlock credential vault: %w", err)
	}
	return string(secret), nil
}

// passphrase reads the vault passphrase from the environment or a masked
// prompt. confirm asks twice.
func passphrase(label string, confirm bool) (string, error) {
	if v := os.Getenv(PassphraseEnv); v != "" {
		return v, nil
	}
	if !util.IsTerminal(os.Stdin) {
		return "", fmt.Errorf("credential vault is locked: set %s or run in a terminal", PassphraseEnv)
	}
	util.Default.Suspend()
	defer util.Default.Resume()
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if len(s) < 8 {
				return errors.New("passphrase must be at least 8 characters")
			}
			return nil
		},
	}
	first, err := prompt.Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return first, nil
	}
	again := promptui.Prompt{Label: "Repeat " + label, Mask: '*'}
	second, err := again.Run()
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

// confirm asks a yes/no question; assumeYes skips the prompt.
func confirm(label string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !util.IsTerminal(os.Stdin) {
		return false, errors.New("refusing to continue without confirmation, pass --yes")
	}
	util.Default.Suspend()
	defer util.Default.Resume()
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
