package carepath

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/credential"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/store"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/config"
)

var (
	cfgMu   sync.RWMutex
	cfgPath string
)

func setConfigPath(p string) {
	cfgMu.Lock()
	cfgPath = p
	cfgMu.Unlock()
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfgMu.RLock()
	location := cfgPath
	cfgMu.RUnlock()
	return config.Load(ctx, location)
}

// newLogger returns a development logger at verbose, otherwise a warn level
// production logger; both write to stderr.
func newLogger(verbose bool) *zap.Logger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newCredentials prefers an explicit token, then CAREPATH_TOKEN, then the
// encrypted token file in the workspace.
func newCredentials(cfg *config.Config, token string) credential.Provider {
	if token = strings.TrimSpace(token); token != "" {
		return credential.NewStatic(token)
	}
	if cfg.Token != "" {
		return credential.NewStatic(cfg.Token)
	}
	return credential.NewScy(cfg.CredentialURL)
}

func newStore(cfg *config.Config, creds credential.Provider) *store.Client {
	return store.New(cfg.BackendURL,
		store.WithTimeout(cfg.RequestTimeout.Std()),
		store.WithHeader("User-Agent", userAgent()),
		store.WithTokenProvider(func(ctx context.Context) (string, error) {
			return creds.AccessToken(), nil
		}),
	)
}

func userAgent() string {
	return "carepath/" + Version()
}

// openLog opens the trace file, truncating it when reset is set.
func openLog(location string, reset bool) (io.WriteCloser, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if reset {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	return os.OpenFile(location, flags, 0644)
}
