package edgerc

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// Resolver maps an account alias to EdgeGrid credentials. Resolution happens
// on every invocation: a section revoked in the file stops resolving on the
// next request, and nothing about a previous decision is remembered.
type Resolver struct {
	logger *zap.Logger
	store  *Store
}

func NewResolver(store *Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger: logger.Named("edgerc_resolver"),
		store:  store,
	}
}

// Resolve returns the credentials for the named account section. An empty
// account selects the default section. Error messages carry the section
// name only, never credential material.
func (r *Resolver) Resolve(ctx context.Context, account string) (domain.Credentials, *domain.Error) {
	const op = "edgerc.Resolve"

	if err := ctx.Err(); err != nil {
		code, ok := domain.CodeFrom(err)
		if !ok {
			code = domain.CodeCanceled
		}
		return domain.Credentials{}, domain.E(code, op, "", err)
	}

	name := strings.ToLower(strings.TrimSpace(account))
	if name == "" {
		name = domain.DefaultAccount
	}

	snapshot := r.store.Snapshot()
	if r.store.Stale() {
		if _, err := r.store.Reload(); err == nil {
			snapshot = r.store.Snapshot()
		}
	}

	creds, ok := snapshot.Lookup(name)
	if !ok {
		// The file may have grown a section since the last reload.
		if _, err := r.store.Reload(); err == nil {
			snapshot = r.store.Snapshot()
			creds, ok = snapshot.Lookup(name)
		}
	}
	if !ok {
		r.logger.Warn("unknown account section", zap.String("account", name))
		return domain.Credentials{}, &domain.Error{
			Code:    domain.CodeUnknownAccount,
			Op:      op,
			Message: fmt.Sprintf("no section %q in %s", name, snapshot.Path),
			Cause:   domain.ErrAccountNotFound,
			Meta:    map[string]string{"account": name},
		}
	}

	if missing := creds.MissingKeys(); len(missing) > 0 {
		r.logger.Warn("incomplete account section",
			zap.String("account", name),
			zap.Strings("missing", missing),
		)
		return domain.Credentials{}, &domain.Error{
			Code:    domain.CodeUnknownAccount,
			Op:      op,
			Message: fmt.Sprintf("section %q is missing required keys", name),
			Cause:   domain.ErrAccountNotFound,
			Meta: map[string]string{
				"account":     name,
				"missingKeys": strings.Join(missing, ","),
			},
		}
	}

	return creds, nil
}
