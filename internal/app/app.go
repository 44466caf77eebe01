package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"kv-go/internal/clipboard"
	"kv-go/internal/config"
	"kv-go/internal/database"
	"kv-go/internal/download"
	"kv-go/internal/encryption"
	"kv-go/internal/keepass"
	"kv-go/internal/kv"
	"kv-go/internal/payload"
)

// KVApp is the application layer between the front ends and KVService.
// It constructs all dependencies from config, exposes the operations the CLI
// needs, and owns the interactive Session. The caller must call Close.
type KVApp struct {
	cfg      *config.Config
	store    kv.ImportStore
	feed     *kv.HistoryFeed
	payloads kv.PayloadStore
	sealer   kv.Sealer
	loader   kv.VaultLoader
	service  *kv.KVService
	clip     *kv.ClipboardSession
	session  *kv.Session
	logger   kv.Logger
	logFile  *os.File
}

// NewKVApp creates a fully wired KVApp from the given config.
// command identifies the CLI command being run and is logged. logToStderr
// mirrors the log to stderr; the TUI passes false.
func NewKVApp(ctx context.Context, cfg *config.Config, command string, logToStderr bool) (*KVApp, error) {
	if err := os.MkdirAll(cfg.BaseDir, 0700); err != nil {
		return nil, fmt.Errorf("creating base_dir: %w", err)
	}

	sessionID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, sessionID, logToStderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a, err := wire(ctx, cfg, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile
	logger.Debug("kv started", "command", command, "base_dir", cfg.BaseDir)
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, logger kv.Logger) (*KVApp, error) {
	sealer, err := encryption.NewSealerFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating sealer: %w", err)
	}
	if !sealer.IsConfigured() {
		return nil, fmt.Errorf("encryption is not set up: run `kv config init`")
	}

	payloads, err := payload.NewStoreFromConfig(ctx, cfg.Payloads)
	if err != nil {
		return nil, fmt.Errorf("creating payload store: %w", err)
	}

	downloader, err := download.NewDownloaderFromConfig(cfg.Download)
	if err != nil {
		return nil, fmt.Errorf("creating downloader: %w", err)
	}

	clip, err := clipboard.NewFromConfig(cfg.Clipboard)
	if err != nil {
		return nil, fmt.Errorf("creating clipboard: %w", err)
	}

	store, err := database.NewImportStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating import store: %w", err)
	}
	if err := store.CheckMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	feed := kv.NewHistoryFeed(store, logger)
	svc := kv.NewKVService(feed, payloads, sealer, downloader, logger, kv.RealClock{})
	svc.UseImportLock(newImportLock(cfg.BaseDir))

	loader := keepass.NewLoader(logger)
	clipSession := kv.NewClipboardSession(clip, kv.RealClock{}, logger)
	session := kv.NewSession(svc, loader, clipSession, logger)
	if err := session.Init(); err != nil {
		session.Close()
		store.Close()
		return nil, fmt.Errorf("loading import history: %w", err)
	}

	return &KVApp{
		cfg:      cfg,
		store:    store,
		feed:     feed,
		payloads: payloads,
		sealer:   sealer,
		loader:   loader,
		service:  svc,
		clip:     clipSession,
		session:  session,
		logger:   logger,
	}, nil
}

// Import downloads rawURL and records it as the newest import.
func (a *KVApp) Import(ctx context.Context, rawURL string) (*kv.ImportRecord, error) {
	return a.service.Import(ctx, rawURL)
}

// History returns every import, newest first.
func (a *KVApp) History() ([]*kv.ImportRecord, error) {
	return a.service.History()
}

// Resolve returns the import with the given ID, or the latest import when id
// is 0.
func (a *KVApp) Resolve(id int64) (*kv.ImportRecord, error) {
	if id != 0 {
		return a.service.Get(id)
	}
	rec, err := a.service.Latest()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, kv.ErrNoImport
	}
	return rec, nil
}

// Unlock decrypts an import synchronously. id 0 selects the latest import.
func (a *KVApp) Unlock(ctx context.Context, id int64, password string) (*kv.ImportRecord, *kv.Tree, error) {
	rec, err := a.Resolve(id)
	if err != nil {
		return nil, nil, err
	}
	data, err := a.service.LoadPayload(rec)
	if err != nil {
		return nil, nil, err
	}
	root, err := a.loader.Decrypt(ctx, data, password)
	if err != nil {
		a.logger.Warn("unlock failed", "import_id", rec.ID, "error", err)
		return nil, nil, err
	}
	tree, err := kv.BuildTree(root)
	if err != nil {
		return nil, nil, err
	}
	return rec, tree, nil
}

// Check verifies that the import history schema is current, the sealer has
// its keys and the payload store is writable.
func (a *KVApp) Check() error {
	if err := a.store.CheckMigrations(); err != nil {
		return fmt.Errorf("import history: %w", err)
	}
	if !a.sealer.IsConfigured() {
		return fmt.Errorf("encryption is not set up: run `kv config init`")
	}
	if err := a.payloads.ValidateSetup(); err != nil {
		return fmt.Errorf("payload store: %w", err)
	}
	return nil
}

// Session returns the interactive session, already pointing at the latest
// import.
func (a *KVApp) Session() *kv.Session {
	return a.session
}

// Feed returns the live import history.
func (a *KVApp) Feed() *kv.HistoryFeed {
	return a.feed
}

// Config returns the config the app was built from.
func (a *KVApp) Config() *config.Config {
	return a.cfg
}

// Close ends the session and closes all resources. It does not touch the
// clipboard; call Session().ClearClipboard first to wipe a pending secret.
func (a *KVApp) Close() error {
	var firstErr error

	a.session.Close()

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
